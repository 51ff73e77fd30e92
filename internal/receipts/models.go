package receipts

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status — стадия распознавания чека.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// CanTransition: pending -> processed|failed, failed -> pending (повтор)
// или processed (ручная правка). processed конечен.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusProcessed || to == StatusFailed
	case StatusFailed:
		return to == StatusPending || to == StatusProcessed
	}
	return false
}

type LineItem struct {
	Name       string           `json:"name"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	ProductID  *string          `json:"productId,omitempty"`
}

type Receipt struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	StoreID      string          `json:"storeId"`
	StoreName    string          `json:"storeName"`
	ImageURL     string          `json:"imageUrl"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Currency     string          `json:"currency"`
	PurchaseDate time.Time       `json:"purchaseDate"`
	Items        []LineItem      `json:"items"`
	Status       Status          `json:"status"`
	OCRText      *string         `json:"ocrText"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (r *Receipt) validate() error {
	switch {
	case r.ID == "" || r.UserID == "":
		return errors.New("receipt without id or owner")
	case !r.Status.Valid():
		return fmt.Errorf("receipt %s has unknown status %q", r.ID, r.Status)
	case r.TotalAmount.IsNegative():
		return fmt.Errorf("receipt %s has negative total", r.ID)
	}
	if r.Items == nil {
		r.Items = []LineItem{}
	}
	return nil
}

// UploadInput — файл изображения чека.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	StoreID     string
	StoreName   string
}

type UpdateReceiptRequest struct {
	StoreID      *string          `json:"storeId"`
	StoreName    *string          `json:"storeName"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
	Currency     *string          `json:"currency"`
	PurchaseDate *time.Time       `json:"purchaseDate"`
	Items        []LineItem       `json:"items"`
	Status       *Status          `json:"status"`
	OCRText      *string          `json:"ocrText"`
}

type ListFilter struct {
	Status Status
	Limit  int
}

// OCRTask — задание внешнему воркеру распознавания.
type OCRTask struct {
	ReceiptID string `json:"receiptId"`
	UserID    string `json:"userId"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	ImageURL  string `json:"imageUrl"`
}

// OCRResult — результат распознавания от воркера.
type OCRResult struct {
	ReceiptID   string           `json:"receiptId"`
	Status      Status           `json:"status"`
	OCRText     *string          `json:"ocrText"`
	Items       []LineItem       `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}
