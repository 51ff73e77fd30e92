package wishlist

import (
	"context"
	"strings"
	"time"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/money"
	"github.com/valeevte/PriceLedger/internal/prices"
)

type Service struct {
	repo     Repository
	monitor  *Monitor
	products prices.ProductLookup
	now      func() time.Time
}

func NewService(repo Repository, monitor *Monitor, products prices.ProductLookup) *Service {
	return &Service{repo: repo, monitor: monitor, products: products, now: time.Now}
}

// owned возвращает активный элемент, принадлежащий userID.
func (s *Service) owned(ctx context.Context, userID, id string) (*Item, error) {
	it, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.IsActive {
		return nil, apperr.NotFound("Wishlist item not found")
	}
	if it.UserID != userID {
		return nil, apperr.AccessDenied("Access denied")
	}
	return it, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return s.monitor.AggregateStats(ctx, items, s.now())
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Detail, error) {
	it, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	ev, effective, err := s.monitor.evaluate(ctx, *it, s.now())
	if err != nil {
		return nil, err
	}
	if effective == nil {
		effective = []prices.PriceRecord{}
	}
	d := &Detail{WishlistItem: it, CurrentPrices: effective, Evaluation: ev}
	p, err := s.products.GetProductByID(ctx, it.ProductID)
	switch {
	case err == nil:
		d.Product = p
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, userID string, req CreateItemRequest) (*Item, error) {
	if req.TargetPrice == nil || req.TargetPrice.IsNegative() {
		return nil, apperr.Invalid("targetPrice must be a non-negative amount")
	}
	name := strings.TrimSpace(req.ProductName)
	if name == "" || strings.TrimSpace(req.ProductID) == "" {
		return nil, apperr.Invalid("Missing required fields: productId, productName, targetPrice")
	}
	it := &Item{
		UserID:          userID,
		ProductID:       strings.TrimSpace(req.ProductID),
		ProductName:     name,
		ProductImageURL: req.ProductImageURL,
		TargetPrice:     req.TargetPrice.Round(2),
		Currency:        money.NormalizeCurrency(req.Currency),
		PreferredStores: req.PreferredStores,
		Notes:           req.Notes,
	}
	if it.PreferredStores == nil {
		it.PreferredStores = []string{}
	}
	if err := s.repo.InsertItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Update меняет пользовательские поля. Смена целевой цены сбрасывает флаг
// достижения, чтобы новая цель могла уведомить заново.
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateItemRequest) (*Item, error) {
	it, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name == "" {
			return nil, apperr.Invalid("productName must not be empty")
		}
		it.ProductName = name
	}
	if req.ProductImageURL != nil {
		it.ProductImageURL = req.ProductImageURL
	}
	targetChanged := false
	if req.TargetPrice != nil {
		if req.TargetPrice.IsNegative() {
			return nil, apperr.Invalid("targetPrice must be a non-negative amount")
		}
		target := req.TargetPrice.Round(2)
		targetChanged = !target.Equal(it.TargetPrice)
		it.TargetPrice = target
	}
	if req.Currency != nil {
		it.Currency = money.NormalizeCurrency(*req.Currency)
	}
	if req.PreferredStores != nil {
		it.PreferredStores = req.PreferredStores
	}
	if req.Notes != nil {
		it.Notes = req.Notes
	}
	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return nil, err
	}
	if targetChanged {
		if err := s.resetReached(ctx, it); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// resetReached снимает флаг достижения через CAS; при гонке с Monitor
// перечитывает состояние.
func (s *Service) resetReached(ctx context.Context, it *Item) error {
	for attempt := 0; attempt < 3; attempt++ {
		cur := it.NotifyState()
		if !cur.TargetReached {
			return nil
		}
		next := NotifyState{LastNotifiedAt: cur.LastNotifiedAt, TargetReached: false}
		ok, err := s.repo.CompareAndSetNotifyState(ctx, it.ID, cur, next)
		if err != nil {
			return err
		}
		if ok {
			it.TargetReached = false
			return nil
		}
		fresh, err := s.repo.GetItemByID(ctx, it.ID)
		if err != nil {
			return err
		}
		it.LastNotifiedAt, it.TargetReached = fresh.LastNotifiedAt, fresh.TargetReached
	}
	return apperr.Upstream("wishlist item state changed concurrently", nil)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.RetireItem(ctx, id)
}
