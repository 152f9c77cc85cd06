package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/event"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	pkgkafka "github.com/dquiroga/ManufactureGo/pkg/kafka"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer returns a producer pointing at a broker that does not
// exist. Services treat publish failures as best effort, so tests pass
// without Kafka.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

// --- Mock Repositories ---

// mockTrackingRepository mocks the tracking repository. When timerFixture
// is set, ApplyTimerEvent emulates the real transactional flow: it runs the
// callback against the fixture and captures the appended entry.
type mockTrackingRepository struct {
	mock.Mock

	timerFixture *domain.ProductionTracking
	timerLast    *domain.ActivityEntry
	timerWorkers int
	timerEntry   *domain.ActivityEntry
}

func (m *mockTrackingRepository) Create(ctx context.Context, t *domain.ProductionTracking) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTrackingRepository) GetByID(ctx context.Context, id string) (*domain.ProductionTracking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductionTracking), args.Error(1)
}

func (m *mockTrackingRepository) List(ctx context.Context, filter repository.TrackingFilter, params pagination.Params) ([]domain.ProductionTracking, int64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.ProductionTracking), args.Get(1).(int64), args.Error(2)
}

func (m *mockTrackingRepository) ReplaceWorkers(ctx context.Context, trackingID string, workerIDs []string, date time.Time) ([]domain.Worker, []string, error) {
	args := m.Called(ctx, trackingID, workerIDs, date)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Worker), args.Get(1).([]string), args.Error(2)
}

func (m *mockTrackingRepository) ApplyTimerEvent(ctx context.Context, trackingID string, apply repository.TimerApplyFunc) (*domain.ProductionTracking, error) {
	if m.timerFixture != nil {
		entry, err := apply(m.timerFixture, m.timerLast, m.timerWorkers)
		if err != nil {
			return nil, err
		}
		m.timerEntry = entry
		return m.timerFixture, nil
	}

	args := m.Called(ctx, trackingID, apply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductionTracking), args.Error(1)
}

func (m *mockTrackingRepository) ListActivity(ctx context.Context, trackingID string) ([]domain.ActivityEntry, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActivityEntry), args.Error(1)
}

func (m *mockTrackingRepository) ListAttendance(ctx context.Context, trackingID string, date *time.Time) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, trackingID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetCartByUser(ctx context.Context, userID string) (*domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter, params pagination.Params) ([]domain.Order, int64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *mockOrderRepository) Checkout(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) AddItem(ctx context.Context, item *domain.OrderItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockOrderRepository) GetItem(ctx context.Context, itemID string) (*domain.OrderItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderItem), args.Error(1)
}

func (m *mockOrderRepository) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	args := m.Called(ctx, itemID, quantity)
	return args.Error(0)
}

func (m *mockOrderRepository) RemoveItem(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.Product, int64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.Product), args.Get(1).(int64), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockWorkflowRepository struct {
	mock.Mock
}

func (m *mockWorkflowRepository) GetTree(ctx context.Context) ([]domain.Stage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Stage), args.Error(1)
}

func (m *mockWorkflowRepository) CreateStage(ctx context.Context, s *domain.Stage) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockWorkflowRepository) GetStage(ctx context.Context, id string) (*domain.Stage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stage), args.Error(1)
}

func (m *mockWorkflowRepository) UpdateStage(ctx context.Context, s *domain.Stage) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockWorkflowRepository) DeleteStage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWorkflowRepository) CreateProcess(ctx context.Context, p *domain.Process) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockWorkflowRepository) GetProcess(ctx context.Context, id string) (*domain.Process, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Process), args.Error(1)
}

func (m *mockWorkflowRepository) UpdateProcess(ctx context.Context, p *domain.Process) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockWorkflowRepository) DeleteProcess(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWorkflowRepository) CreateSubprocess(ctx context.Context, sp *domain.Subprocess) error {
	args := m.Called(ctx, sp)
	return args.Error(0)
}

func (m *mockWorkflowRepository) GetSubprocess(ctx context.Context, id string) (*domain.Subprocess, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subprocess), args.Error(1)
}

func (m *mockWorkflowRepository) UpdateSubprocess(ctx context.Context, sp *domain.Subprocess) error {
	args := m.Called(ctx, sp)
	return args.Error(0)
}

func (m *mockWorkflowRepository) DeleteSubprocess(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockProductLineRepository struct {
	mock.Mock
}

func (m *mockProductLineRepository) Create(ctx context.Context, l *domain.ProductLine) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockProductLineRepository) GetByID(ctx context.Context, id string) (*domain.ProductLine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductLine), args.Error(1)
}

func (m *mockProductLineRepository) List(ctx context.Context, params pagination.Params) ([]domain.ProductLine, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.ProductLine), args.Get(1).(int64), args.Error(2)
}

func (m *mockProductLineRepository) Update(ctx context.Context, l *domain.ProductLine) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockProductLineRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
