package wishlist

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/prices"
	"github.com/valeevte/PriceLedger/internal/products"
)

// Item — желаемый товар пользователя с целевой ценой.
type Item struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductImageURL *string         `json:"productImageUrl"`
	TargetPrice     decimal.Decimal `json:"targetPrice"`
	Currency        string          `json:"currency"`
	PreferredStores []string        `json:"preferredStores"`
	Notes           *string         `json:"notes"`
	Status          lifecycle.State `json:"status"`
	IsActive        bool            `json:"isActive"`
	LastNotifiedAt  *time.Time      `json:"lastNotifiedAt"`
	TargetReached   bool            `json:"targetReached"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (i *Item) validate() error {
	switch {
	case i.ID == "" || i.UserID == "":
		return errors.New("wishlist item without id or owner")
	case i.ProductID == "":
		return fmt.Errorf("wishlist item %s without product", i.ID)
	case i.TargetPrice.IsNegative():
		return fmt.Errorf("wishlist item %s has negative target", i.ID)
	}
	if i.PreferredStores == nil {
		i.PreferredStores = []string{}
	}
	i.IsActive = i.Status.IsActive()
	return nil
}

// NotifyState — состояние троттлинга уведомлений.
type NotifyState struct {
	LastNotifiedAt *time.Time
	TargetReached  bool
}

func (i *Item) NotifyState() NotifyState {
	return NotifyState{LastNotifiedAt: i.LastNotifiedAt, TargetReached: i.TargetReached}
}

type CreateItemRequest struct {
	ProductID       string           `json:"productId" binding:"required"`
	ProductName     string           `json:"productName" binding:"required,max=200"`
	ProductImageURL *string          `json:"productImageUrl"`
	TargetPrice     *decimal.Decimal `json:"targetPrice" binding:"required"`
	Currency        string           `json:"currency"`
	PreferredStores []string         `json:"preferredStores"`
	Notes           *string          `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateItemRequest — частичное обновление; nil-поля не меняются.
type UpdateItemRequest struct {
	ProductName     *string          `json:"productName" binding:"omitempty,max=200"`
	ProductImageURL *string          `json:"productImageUrl"`
	TargetPrice     *decimal.Decimal `json:"targetPrice"`
	Currency        *string          `json:"currency"`
	PreferredStores []string         `json:"preferredStores"`
	Notes           *string          `json:"notes" binding:"omitempty,max=1000"`
}

// Evaluation — сравнение цели с текущей эффективной ценой.
type Evaluation struct {
	CurrentPrice    *decimal.Decimal    `json:"currentPrice"`
	LowestPrice     *prices.PriceRecord `json:"lowestPrice"`
	IsTargetReached bool                `json:"isTargetReached"`
	PotentialSaving decimal.Decimal     `json:"potentialSaving"`
}

type Stats struct {
	TotalItems            int             `json:"totalItems"`
	TargetReached         int             `json:"targetReached"`
	AverageTargetPrice    decimal.Decimal `json:"averageTargetPrice"`
	TotalPotentialSavings decimal.Decimal `json:"totalPotentialSavings"`
}

// Detail — ответ на GET /wishlist/:id.
type Detail struct {
	WishlistItem  *Item                `json:"wishlistItem"`
	Product       *products.Product    `json:"product"`
	CurrentPrices []prices.PriceRecord `json:"currentPrices"`
	Evaluation
}

// Alert — уведомление о достижении целевой цены.
type Alert struct {
	ItemID       string          `json:"itemId"`
	UserID       string          `json:"userId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	StoreID      string          `json:"storeId"`
	Currency     string          `json:"currency"`
	At           time.Time       `json:"at"`
}
