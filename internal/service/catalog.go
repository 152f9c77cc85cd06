package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// CatalogService manages product lines and products.
type CatalogService struct {
	lines    repository.ProductLineRepository
	products repository.ProductRepository
	clock    clock.Clock
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(lines repository.ProductLineRepository, products repository.ProductRepository, clk clock.Clock, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		lines:    lines,
		products: products,
		clock:    clk,
		logger:   logger,
	}
}

// ProductLineInput holds the mutable fields of a product line.
type ProductLineInput struct {
	Name        string
	Description string
}

// CreateProductLine registers a product family.
func (s *CatalogService) CreateProductLine(ctx context.Context, input ProductLineInput) (*domain.ProductLine, error) {
	now := s.clock.Now()
	line := &domain.ProductLine{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.lines.Create(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// GetProductLine loads one product line.
func (s *CatalogService) GetProductLine(ctx context.Context, id string) (*domain.ProductLine, error) {
	return s.lines.GetByID(ctx, id)
}

// ListProductLines returns a page of product lines.
func (s *CatalogService) ListProductLines(ctx context.Context, params pagination.Params) ([]domain.ProductLine, int64, error) {
	return s.lines.List(ctx, params)
}

// UpdateProductLine rewrites a product line's fields.
func (s *CatalogService) UpdateProductLine(ctx context.Context, id string, input ProductLineInput) (*domain.ProductLine, error) {
	line, err := s.lines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	line.Name = input.Name
	line.Description = input.Description
	if err := s.lines.Update(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteProductLine removes a product line with no products.
func (s *CatalogService) DeleteProductLine(ctx context.Context, id string) error {
	return s.lines.Delete(ctx, id)
}

// ProductInput holds the mutable fields of a product.
type ProductInput struct {
	ProductLineID string
	Name          string
	Description   string
	SKU           string
	Presentation  string
	UnitPrice     float64
	IsActive      bool
}

// CreateProduct registers a catalog product.
func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if input.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit_price cannot be negative")
	}

	now := s.clock.Now()
	product := &domain.Product{
		ID:            uuid.NewString(),
		ProductLineID: input.ProductLineID,
		Name:          input.Name,
		Description:   input.Description,
		SKU:           input.SKU,
		Presentation:  input.Presentation,
		UnitPrice:     input.UnitPrice,
		IsActive:      input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct loads one product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns a page of products matching the filter.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.Product, int64, error) {
	return s.products.List(ctx, filter, params)
}

// UpdateProduct rewrites a product's fields.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	if input.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit_price cannot be negative")
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.ProductLineID = input.ProductLineID
	product.Name = input.Name
	product.Description = input.Description
	product.SKU = input.SKU
	product.Presentation = input.Presentation
	product.UnitPrice = input.UnitPrice
	product.IsActive = input.IsActive
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product not referenced by any order.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}
