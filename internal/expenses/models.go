package expenses

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/report"
)

type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	ReceiptID   *string         `json:"receiptId"`
	StoreID     *string         `json:"storeId"`
	StoreName   *string         `json:"storeName"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (e *Expense) validate() error {
	switch {
	case e.ID == "" || e.UserID == "":
		return errors.New("expense without id or owner")
	case e.Amount.IsNegative():
		return fmt.Errorf("expense %s has negative amount", e.ID)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return nil
}

func (e Expense) entry() report.Entry {
	return report.Entry{Amount: e.Amount, Category: e.Category, At: e.Date}
}

type CreateExpenseRequest struct {
	Category    string           `json:"category" binding:"required"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Currency    string           `json:"currency"`
	Description string           `json:"description" binding:"required,max=500"`
	Date        *time.Time       `json:"date"`
	ReceiptID   *string          `json:"receiptId"`
	StoreID     *string          `json:"storeId"`
	StoreName   *string          `json:"storeName"`
	Tags        []string         `json:"tags"`
}

// UpdateExpenseRequest — частичное обновление; nil-поля не меняются.
type UpdateExpenseRequest struct {
	Category    *string          `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
	Date        *time.Time       `json:"date"`
	ReceiptID   *string          `json:"receiptId"`
	StoreID     *string          `json:"storeId"`
	StoreName   *string          `json:"storeName"`
	Tags        []string         `json:"tags"`
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Limit     int
	Offset    int
}

// MonthlySummary — сводка расходов за месяц со сравнением с предыдущим.
type MonthlySummary struct {
	Month    string `json:"month"`
	Currency string `json:"currency"`
	report.Summary
	PreviousMonthAmount decimal.Decimal `json:"previousMonthAmount"`
	PercentageChange    decimal.Decimal `json:"percentageChange"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Categories — фиксированный справочник категорий.
var Categories = []Category{
	{ID: "groceries", Name: "Groceries", Icon: "shopping_cart", Color: "#4CAF50"},
	{ID: "household", Name: "Household", Icon: "home", Color: "#2196F3"},
	{ID: "personal", Name: "Personal", Icon: "person", Color: "#FF9800"},
	{ID: "health", Name: "Health & Beauty", Icon: "favorite", Color: "#E91E63"},
	{ID: "transport", Name: "Transport", Icon: "directions_car", Color: "#9C27B0"},
	{ID: "entertainment", Name: "Entertainment", Icon: "movie", Color: "#FF5722"},
	{ID: "other", Name: "Other", Icon: "more_horiz", Color: "#607D8B"},
}

func knownCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
