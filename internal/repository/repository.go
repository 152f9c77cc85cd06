// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres subpackage.
package repository

import (
	"context"
	"time"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// UserRepository persists API accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CompanyRepository persists contractor companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context, params pagination.Params) ([]domain.Company, int64, error)
	Update(ctx context.Context, company *domain.Company) error
	Delete(ctx context.Context, id string) error
}

// WorkerFilter narrows worker listings.
type WorkerFilter struct {
	WorkerType string
	CompanyID  string
	Search     string
	ActiveOnly bool
}

// WorkerRepository persists shop-floor workers.
type WorkerRepository interface {
	Create(ctx context.Context, worker *domain.Worker) error
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
	List(ctx context.Context, filter WorkerFilter, params pagination.Params) ([]domain.Worker, int64, error)
	Update(ctx context.Context, worker *domain.Worker) error
	Delete(ctx context.Context, id string) error
}

// ProductLineRepository persists product families.
type ProductLineRepository interface {
	Create(ctx context.Context, line *domain.ProductLine) error
	GetByID(ctx context.Context, id string) (*domain.ProductLine, error)
	List(ctx context.Context, params pagination.Params) ([]domain.ProductLine, int64, error)
	Update(ctx context.Context, line *domain.ProductLine) error
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	ProductLineID string
	Search        string
	ActiveOnly    bool
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, params pagination.Params) ([]domain.Product, int64, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID        string
	Status        string
	ExcludeStatus string
}

// OrderRepository persists orders and their items. The cart is an order in
// the cart status.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetCartByUser(ctx context.Context, userID string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter, params pagination.Params) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
	Checkout(ctx context.Context, order *domain.Order) error

	AddItem(ctx context.Context, item *domain.OrderItem) error
	GetItem(ctx context.Context, itemID string) (*domain.OrderItem, error)
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error
	RemoveItem(ctx context.Context, itemID string) error
}

// WorkflowRepository persists the three-level workflow template.
type WorkflowRepository interface {
	GetTree(ctx context.Context) ([]domain.Stage, error)

	CreateStage(ctx context.Context, stage *domain.Stage) error
	GetStage(ctx context.Context, id string) (*domain.Stage, error)
	UpdateStage(ctx context.Context, stage *domain.Stage) error
	DeleteStage(ctx context.Context, id string) error

	CreateProcess(ctx context.Context, process *domain.Process) error
	GetProcess(ctx context.Context, id string) (*domain.Process, error)
	UpdateProcess(ctx context.Context, process *domain.Process) error
	DeleteProcess(ctx context.Context, id string) error

	CreateSubprocess(ctx context.Context, sub *domain.Subprocess) error
	GetSubprocess(ctx context.Context, id string) (*domain.Subprocess, error)
	UpdateSubprocess(ctx context.Context, sub *domain.Subprocess) error
	DeleteSubprocess(ctx context.Context, id string) error
}

// TrackingFilter narrows tracking listings.
type TrackingFilter struct {
	OrderItemID  string
	SubprocessID string
	Status       string
}

// TimerApplyFunc runs inside the timer transaction with the tracking row
// locked. It receives the current record, the most recent activity entry
// (nil if none) and the number of assigned workers, mutates the record and
// returns the activity entry to append.
type TimerApplyFunc func(t *domain.ProductionTracking, last *domain.ActivityEntry, workerCount int) (*domain.ActivityEntry, error)

// TrackingRepository persists production tracking records, their activity
// log and attendance.
type TrackingRepository interface {
	Create(ctx context.Context, tracking *domain.ProductionTracking) error
	GetByID(ctx context.Context, id string) (*domain.ProductionTracking, error)
	List(ctx context.Context, filter TrackingFilter, params pagination.Params) ([]domain.ProductionTracking, int64, error)

	// ReplaceWorkers swaps the assigned worker set in one transaction and
	// upserts an attendance record per worker for the given date. Worker IDs
	// that do not exist are dropped and returned.
	ReplaceWorkers(ctx context.Context, trackingID string, workerIDs []string, date time.Time) (assigned []domain.Worker, dropped []string, err error)

	// ApplyTimerEvent locks the tracking row, reads its most recent activity
	// entry, invokes apply, then persists the mutated record and appends the
	// returned entry, all in one transaction.
	ApplyTimerEvent(ctx context.Context, trackingID string, apply TimerApplyFunc) (*domain.ProductionTracking, error)

	ListActivity(ctx context.Context, trackingID string) ([]domain.ActivityEntry, error)
	ListAttendance(ctx context.Context, trackingID string, date *time.Time) ([]domain.AttendanceRecord, error)
}
