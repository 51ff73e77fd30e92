package prices

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/products"
	"github.com/valeevte/PriceLedger/internal/stores"
)

// Source — откуда пришло наблюдение цены.
type Source string

const (
	SourceManual  Source = "manual"
	SourceReceipt Source = "receipt"
	SourceImport  Source = "import"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceReceipt, SourceImport:
		return true
	}
	return false
}

// PriceRecord — наблюдение цены товара в магазине с окном действия
// [ValidFrom, ValidUntil). ValidUntil == nil — окно открыто.
type PriceRecord struct {
	ID              string           `json:"id"`
	ProductID       string           `json:"productId"`
	StoreID         string           `json:"storeId"`
	Price           decimal.Decimal  `json:"price"`
	Currency        string           `json:"currency"`
	IsOnSale        bool             `json:"isOnSale"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice"`
	SaleDescription *string          `json:"saleDescription"`
	ValidFrom       time.Time        `json:"validFrom"`
	ValidUntil      *time.Time       `json:"validUntil"`
	Source          Source           `json:"source"`
	SubmittedBy     *string          `json:"submittedBy,omitempty"`
	Status          lifecycle.State  `json:"status"`
	IsActive        bool             `json:"isActive"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (p *PriceRecord) validate() error {
	switch {
	case p.ID == "":
		return errors.New("price without id")
	case p.ProductID == "" || p.StoreID == "":
		return fmt.Errorf("price %s without product or store", p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("price %s is negative", p.ID)
	case p.OriginalPrice != nil && p.OriginalPrice.IsNegative():
		return fmt.Errorf("price %s has negative original price", p.ID)
	case !p.Source.Valid():
		return fmt.Errorf("price %s has unknown source %q", p.ID, p.Source)
	}
	p.IsActive = p.Status.IsActive()
	return nil
}

type CreatePriceRequest struct {
	ProductID       string           `json:"productId" binding:"required"`
	StoreID         string           `json:"storeId" binding:"required"`
	Price           *decimal.Decimal `json:"price" binding:"required"`
	Currency        string           `json:"currency"`
	IsOnSale        bool             `json:"isOnSale"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice"`
	SaleDescription *string          `json:"saleDescription"`
	ValidFrom       *time.Time       `json:"validFrom"`
	ValidUntil      *time.Time       `json:"validUntil"`
	Source          string           `json:"source"`
}

// StorePrice — эффективная цена в конкретном магазине.
type StorePrice struct {
	Store       stores.Store `json:"store"`
	Price       PriceRecord  `json:"price"`
	IsAvailable bool         `json:"isAvailable"`
}

// Comparison — сравнение эффективных цен товара по магазинам.
type Comparison struct {
	Product      *products.Product `json:"product"`
	Prices       []StorePrice      `json:"prices"`
	LowestPrice  *PriceRecord      `json:"lowestPrice"`
	HighestPrice *PriceRecord      `json:"highestPrice"`
	AveragePrice decimal.Decimal   `json:"averagePrice"`
	PriceRange   decimal.Decimal   `json:"priceRange"`
	At           time.Time         `json:"at"`
}

// TrendPoint — средняя цена наблюдений за месяц.
type TrendPoint struct {
	Month        string          `json:"month"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Observations int             `json:"observations"`
}
