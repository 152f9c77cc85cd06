package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// WorkforceService manages contractor companies and workers.
type WorkforceService struct {
	companies repository.CompanyRepository
	workers   repository.WorkerRepository
	clock     clock.Clock
	logger    *slog.Logger
}

// NewWorkforceService creates a new workforce service.
func NewWorkforceService(companies repository.CompanyRepository, workers repository.WorkerRepository, clk clock.Clock, logger *slog.Logger) *WorkforceService {
	return &WorkforceService{
		companies: companies,
		workers:   workers,
		clock:     clk,
		logger:    logger,
	}
}

// CompanyInput holds the mutable fields of a company.
type CompanyInput struct {
	Name        string
	TaxID       string
	ContactName string
	Phone       string
}

// CreateCompany registers a contractor company.
func (s *WorkforceService) CreateCompany(ctx context.Context, input CompanyInput) (*domain.Company, error) {
	now := s.clock.Now()
	company := &domain.Company{
		ID:          uuid.NewString(),
		Name:        input.Name,
		TaxID:       input.TaxID,
		ContactName: input.ContactName,
		Phone:       input.Phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// GetCompany loads one company.
func (s *WorkforceService) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	return s.companies.GetByID(ctx, id)
}

// ListCompanies returns a page of companies.
func (s *WorkforceService) ListCompanies(ctx context.Context, params pagination.Params) ([]domain.Company, int64, error) {
	return s.companies.List(ctx, params)
}

// UpdateCompany rewrites a company's fields.
func (s *WorkforceService) UpdateCompany(ctx context.Context, id string, input CompanyInput) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	company.Name = input.Name
	company.TaxID = input.TaxID
	company.ContactName = input.ContactName
	company.Phone = input.Phone
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// DeleteCompany removes a company. Its workers stay and become detached.
func (s *WorkforceService) DeleteCompany(ctx context.Context, id string) error {
	if err := s.companies.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "company deleted, workers detached", slog.String("company_id", id))
	return nil
}

// WorkerInput holds the mutable fields of a worker.
type WorkerInput struct {
	FirstName  string
	LastName   string
	DocumentID string
	WorkerType string
	CompanyID  *string
	IsActive   bool
}

func (s *WorkforceService) validateWorker(input WorkerInput) error {
	if !domain.IsValidWorkerType(input.WorkerType) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown worker type %q", input.WorkerType))
	}
	if input.WorkerType == domain.WorkerTypeContractor && input.CompanyID == nil {
		return apperrors.InvalidInput("contractor workers require a company")
	}
	if input.WorkerType == domain.WorkerTypePayroll && input.CompanyID != nil {
		return apperrors.InvalidInput("payroll workers cannot have a company")
	}
	return nil
}

// CreateWorker registers a worker.
func (s *WorkforceService) CreateWorker(ctx context.Context, input WorkerInput) (*domain.Worker, error) {
	if err := s.validateWorker(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	worker := &domain.Worker{
		ID:         uuid.NewString(),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		DocumentID: input.DocumentID,
		WorkerType: input.WorkerType,
		CompanyID:  input.CompanyID,
		IsActive:   input.IsActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.workers.Create(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

// GetWorker loads one worker.
func (s *WorkforceService) GetWorker(ctx context.Context, id string) (*domain.Worker, error) {
	return s.workers.GetByID(ctx, id)
}

// ListWorkers returns a page of workers matching the filter.
func (s *WorkforceService) ListWorkers(ctx context.Context, filter repository.WorkerFilter, params pagination.Params) ([]domain.Worker, int64, error) {
	return s.workers.List(ctx, filter, params)
}

// UpdateWorker rewrites a worker's fields.
func (s *WorkforceService) UpdateWorker(ctx context.Context, id string, input WorkerInput) (*domain.Worker, error) {
	if err := s.validateWorker(input); err != nil {
		return nil, err
	}

	worker, err := s.workers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	worker.FirstName = input.FirstName
	worker.LastName = input.LastName
	worker.DocumentID = input.DocumentID
	worker.WorkerType = input.WorkerType
	worker.CompanyID = input.CompanyID
	worker.IsActive = input.IsActive
	if err := s.workers.Update(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

// DeleteWorker removes a worker.
func (s *WorkforceService) DeleteWorker(ctx context.Context, id string) error {
	return s.workers.Delete(ctx, id)
}
