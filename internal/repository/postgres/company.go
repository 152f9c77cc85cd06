package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// CompanyRepository implements repository.CompanyRepository using PostgreSQL.
type CompanyRepository struct {
	pool database.DBTX
}

// NewCompanyRepository creates a new PostgreSQL-backed company repository.
func NewCompanyRepository(pool database.DBTX) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create inserts a new contractor company.
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, tax_id, contact_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.TaxID, c.ContactName, c.Phone, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("company", "name", c.Name)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `
		SELECT id, name, tax_id, contact_name, phone, created_at, updated_at
		FROM companies
		WHERE id = $1`

	var c domain.Company
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.TaxID, &c.ContactName, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("company", id)
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}
	return &c, nil
}

// List returns companies ordered by name with the total count.
func (r *CompanyRepository) List(ctx context.Context, params pagination.Params) ([]domain.Company, int64, error) {
	query := `
		SELECT id, name, tax_id, contact_name, phone, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM companies
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var total int64
	companies := make([]domain.Company, 0)
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.ContactName, &c.Phone, &c.CreatedAt, &c.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate company rows: %w", err)
	}
	return companies, total, nil
}

// Update rewrites a company's mutable fields.
func (r *CompanyRepository) Update(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies
		SET name = $1, tax_id = $2, contact_name = $3, phone = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.pool.Exec(ctx, query, c.Name, c.TaxID, c.ContactName, c.Phone, time.Now().UTC(), c.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("company", "name", c.Name)
		}
		return fmt.Errorf("update company: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("company", c.ID)
	}
	return nil
}

// Delete removes a company. Workers referencing it are detached by the
// ON DELETE SET NULL constraint, not deleted.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("company", id)
	}
	return nil
}
