package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// WorkerRepository implements repository.WorkerRepository using PostgreSQL.
type WorkerRepository struct {
	pool database.DBTX
}

// NewWorkerRepository creates a new PostgreSQL-backed worker repository.
func NewWorkerRepository(pool database.DBTX) *WorkerRepository {
	return &WorkerRepository{pool: pool}
}

// Create inserts a new worker.
func (r *WorkerRepository) Create(ctx context.Context, w *domain.Worker) error {
	query := `
		INSERT INTO workers (id, first_name, last_name, document_id, worker_type, company_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.FirstName, w.LastName, w.DocumentID, w.WorkerType, w.CompanyID, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("worker", "document_id", w.DocumentID)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("company %s does not exist", deref(w.CompanyID)))
		}
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

// GetByID retrieves a worker by ID.
func (r *WorkerRepository) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	query := `
		SELECT id, first_name, last_name, document_id, worker_type, company_id, is_active, created_at, updated_at
		FROM workers
		WHERE id = $1`

	var w domain.Worker
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.FirstName, &w.LastName, &w.DocumentID, &w.WorkerType, &w.CompanyID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("worker", id)
		}
		return nil, fmt.Errorf("scan worker: %w", err)
	}
	return &w, nil
}

// List returns workers matching the filter with the total count.
func (r *WorkerRepository) List(ctx context.Context, filter repository.WorkerFilter, params pagination.Params) ([]domain.Worker, int64, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.WorkerType != "" {
		conditions = append(conditions, fmt.Sprintf("worker_type = $%d", argIndex))
		args = append(args, filter.WorkerType)
		argIndex++
	}
	if filter.CompanyID != "" {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argIndex))
		args = append(args, filter.CompanyID)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR document_id ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, document_id, worker_type, company_id, is_active, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM workers
		%s
		ORDER BY last_name, first_name
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var total int64
	workers := make([]domain.Worker, 0)
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(
			&w.ID, &w.FirstName, &w.LastName, &w.DocumentID, &w.WorkerType, &w.CompanyID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan worker row: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate worker rows: %w", err)
	}
	return workers, total, nil
}

// Update rewrites a worker's mutable fields.
func (r *WorkerRepository) Update(ctx context.Context, w *domain.Worker) error {
	query := `
		UPDATE workers
		SET first_name = $1, last_name = $2, document_id = $3, worker_type = $4, company_id = $5, is_active = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		w.FirstName, w.LastName, w.DocumentID, w.WorkerType, w.CompanyID, w.IsActive, time.Now().UTC(), w.ID,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("worker", "document_id", w.DocumentID)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("company %s does not exist", deref(w.CompanyID)))
		}
		return fmt.Errorf("update worker: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("worker", w.ID)
	}
	return nil
}

// Delete removes a worker.
func (r *WorkerRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("worker", id)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
