package domain

import "time"

// ProductLine groups products into a commercial family.
type ProductLine struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a manufacturable catalog item.
type Product struct {
	ID            string    `json:"id"`
	ProductLineID string    `json:"product_line_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	SKU           string    `json:"sku"`
	Presentation  string    `json:"presentation,omitempty"`
	UnitPrice     float64   `json:"unit_price"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
