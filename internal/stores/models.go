package stores

import (
	"errors"
	"time"

	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Store struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Chain     string          `json:"chain"`
	Type      string          `json:"type"`
	Address   string          `json:"address"`
	City      string          `json:"city"`
	Region    string          `json:"state"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Status    lifecycle.State `json:"status"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s *Store) validate() error {
	if s.ID == "" || s.Name == "" {
		return errors.New("store without id or name")
	}
	if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
		return errors.New("store coordinates out of range")
	}
	s.IsActive = s.Status.IsActive()
	return nil
}

type CreateStoreRequest struct {
	Name      string  `json:"name" binding:"required,max=200"`
	Chain     string  `json:"chain" binding:"max=100"`
	Type      string  `json:"type" binding:"max=50"`
	Address   string  `json:"address" binding:"max=300"`
	City      string  `json:"city" binding:"max=100"`
	Region    string  `json:"state" binding:"max=100"`
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
}

// ListFilter — фильтры списка магазинов; пустые поля не применяются.
type ListFilter struct {
	City   string
	Region string
	Type   string
}
