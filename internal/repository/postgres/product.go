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

// ProductLineRepository implements repository.ProductLineRepository using
// PostgreSQL.
type ProductLineRepository struct {
	pool database.DBTX
}

// NewProductLineRepository creates a new PostgreSQL-backed product line
// repository.
func NewProductLineRepository(pool database.DBTX) *ProductLineRepository {
	return &ProductLineRepository{pool: pool}
}

// Create inserts a new product line.
func (r *ProductLineRepository) Create(ctx context.Context, l *domain.ProductLine) error {
	query := `
		INSERT INTO product_lines (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, l.ID, l.Name, l.Description, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("product line", "name", l.Name)
		}
		return fmt.Errorf("insert product line: %w", err)
	}
	return nil
}

// GetByID retrieves a product line by ID.
func (r *ProductLineRepository) GetByID(ctx context.Context, id string) (*domain.ProductLine, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM product_lines
		WHERE id = $1`

	var l domain.ProductLine
	err := r.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product line", id)
		}
		return nil, fmt.Errorf("scan product line: %w", err)
	}
	return &l, nil
}

// List returns product lines ordered by name with the total count.
func (r *ProductLineRepository) List(ctx context.Context, params pagination.Params) ([]domain.ProductLine, int64, error) {
	query := `
		SELECT id, name, description, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM product_lines
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list product lines: %w", err)
	}
	defer rows.Close()

	var total int64
	lines := make([]domain.ProductLine, 0)
	for rows.Next() {
		var l domain.ProductLine
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product line row: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product line rows: %w", err)
	}
	return lines, total, nil
}

// Update rewrites a product line's mutable fields.
func (r *ProductLineRepository) Update(ctx context.Context, l *domain.ProductLine) error {
	query := `
		UPDATE product_lines
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query, l.Name, l.Description, time.Now().UTC(), l.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("product line", "name", l.Name)
		}
		return fmt.Errorf("update product line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product line", l.ID)
	}
	return nil
}

// Delete removes a product line. Products referencing it block deletion via
// the ON DELETE RESTRICT constraint.
func (r *ProductLineRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM product_lines WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.Conflict("product line has products and cannot be deleted")
		}
		return fmt.Errorf("delete product line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product line", id)
	}
	return nil
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, product_line_id, name, description, sku, presentation, unit_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ProductLineID, p.Name, p.Description, p.SKU, p.Presentation, p.UnitPrice, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("product line %s does not exist", p.ProductLineID))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, product_line_id, name, description, sku, presentation, unit_price, is_active, created_at, updated_at
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProductLineID, &p.Name, &p.Description, &p.SKU, &p.Presentation, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// List returns products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.Product, int64, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ProductLineID != "" {
		conditions = append(conditions, fmt.Sprintf("product_line_id = $%d", argIndex))
		args = append(args, filter.ProductLineID)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", argIndex, argIndex))
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
		SELECT id, product_line_id, name, description, sku, presentation, unit_price, is_active, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var total int64
	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.ProductLineID, &p.Name, &p.Description, &p.SKU, &p.Presentation, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// Update rewrites a product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET product_line_id = $1, name = $2, description = $3, sku = $4, presentation = $5, unit_price = $6, is_active = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		p.ProductLineID, p.Name, p.Description, p.SKU, p.Presentation, p.UnitPrice, p.IsActive, time.Now().UTC(), p.ID,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("product line %s does not exist", p.ProductLineID))
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product. Order items referencing it block deletion.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.Conflict("product is referenced by orders and cannot be deleted")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}
