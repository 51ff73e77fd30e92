package products

import (
	"errors"
	"time"

	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	Barcode   *string         `json:"barcode,omitempty"` // nullable
	ImageURL  *string         `json:"imageUrl,omitempty"`
	Unit      string          `json:"unit"`
	Status    lifecycle.State `json:"status"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (p *Product) validate() error {
	if p.ID == "" {
		return errors.New("product without id")
	}
	if p.Name == "" {
		return errors.New("product without name")
	}
	p.IsActive = p.Status.IsActive()
	return nil
}

type CreateProductRequest struct {
	Name     string  `json:"name" binding:"required,max=200"`
	Brand    string  `json:"brand" binding:"max=100"`
	Category string  `json:"category" binding:"max=100"`
	Barcode  *string `json:"barcode"`
	ImageURL *string `json:"imageUrl"`
	Unit     string  `json:"unit" binding:"max=32"`
}

// ListFilter — фильтр каталога.
type ListFilter struct {
	Category string
	Limit    int
	Offset   int
}
