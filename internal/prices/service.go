package prices

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/money"
	"github.com/valeevte/PriceLedger/internal/report"
)

// HistoryLimit — максимум записей в истории цен.
const HistoryLimit = 50

type Service struct {
	repo       Repository
	resolver   *Resolver
	comparator *Comparator
	products   ProductLookup
	stores     StoreLookup
	loc        *time.Location
	now        func() time.Time
	log        *zap.Logger
}

func NewService(repo Repository, resolver *Resolver, comparator *Comparator, products ProductLookup, stores StoreLookup, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:       repo,
		resolver:   resolver,
		comparator: comparator,
		products:   products,
		stores:     stores,
		loc:        loc,
		now:        time.Now,
		log:        log,
	}
}

func (s *Service) Create(ctx context.Context, userID string, req CreatePriceRequest) (*PriceRecord, error) {
	if req.Price == nil || req.Price.IsNegative() {
		return nil, apperr.Invalid("price must be a non-negative amount")
	}
	if req.OriginalPrice != nil && req.OriginalPrice.IsNegative() {
		return nil, apperr.Invalid("originalPrice must be a non-negative amount")
	}
	src := SourceManual
	if req.Source != "" {
		src = Source(strings.ToLower(req.Source))
		if !src.Valid() {
			return nil, apperr.Invalid("source must be one of manual, receipt, import")
		}
	}
	now := s.now()
	validFrom := now
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(validFrom) {
		return nil, apperr.Invalid("validUntil must be after validFrom")
	}

	p, err := s.products.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.Invalid("product is retired")
	}
	st, err := s.stores.GetStoreByID(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if !st.IsActive {
		return nil, apperr.Invalid("store is retired")
	}

	rec := &PriceRecord{
		ProductID:       req.ProductID,
		StoreID:         req.StoreID,
		Price:           req.Price.Round(2),
		Currency:        money.NormalizeCurrency(req.Currency),
		IsOnSale:        req.IsOnSale,
		OriginalPrice:   req.OriginalPrice,
		SaleDescription: req.SaleDescription,
		ValidFrom:       validFrom,
		ValidUntil:      req.ValidUntil,
		Source:          src,
	}
	if userID != "" {
		rec.SubmittedBy = &userID
	}
	if err := s.repo.InsertPrice(ctx, rec); err != nil {
		return nil, err
	}
	s.comparator.Invalidate(ctx, rec.ProductID)
	s.log.Info("price recorded",
		zap.String("price_id", rec.ID),
		zap.String("product_id", rec.ProductID),
		zap.String("store_id", rec.StoreID),
		zap.String("price", rec.Price.StringFixed(2)))
	return rec, nil
}

// InvalidateProduct сбрасывает кэш сравнения товара; вызывается при
// изменениях вне ценового реестра (например, отзыве товара).
func (s *Service) InvalidateProduct(ctx context.Context, productID string) {
	s.comparator.Invalidate(ctx, productID)
}

// Retire отзывает запись; разрешено только автору.
func (s *Service) Retire(ctx context.Context, userID, id string) error {
	rec, err := s.repo.GetPriceByID(ctx, id)
	if err != nil {
		return err
	}
	if !rec.IsActive {
		return apperr.NotFound("Price not found")
	}
	if rec.SubmittedBy == nil || *rec.SubmittedBy != userID {
		return apperr.AccessDenied("Access denied")
	}
	if err := s.repo.RetirePrice(ctx, id); err != nil {
		return err
	}
	s.comparator.Invalidate(ctx, rec.ProductID)
	return nil
}

func (s *Service) History(ctx context.Context, productID string) ([]PriceRecord, error) {
	return s.repo.History(ctx, productID, s.now(), HistoryLimit)
}

// Effective — эффективные цены на момент at (nil — сейчас).
func (s *Service) Effective(ctx context.Context, productID string, at *time.Time) ([]PriceRecord, error) {
	t := s.now()
	if at != nil {
		t = *at
	}
	return s.resolver.Resolve(ctx, productID, t)
}

// Compare — сравнение цен; запросы "на сейчас" идут через кэш.
func (s *Service) Compare(ctx context.Context, productID string, at *time.Time) (*Comparison, error) {
	if at == nil {
		return s.comparator.CompareNow(ctx, productID, s.now())
	}
	return s.comparator.Compare(ctx, productID, *at)
}

// Trends — средняя цена наблюдений по месяцам за последние months месяцев.
func (s *Service) Trends(ctx context.Context, productID string, months int) ([]TrendPoint, error) {
	if _, err := s.products.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	periods := report.LastMonths(s.now(), months, s.loc)
	if len(periods) == 0 {
		return []TrendPoint{}, nil
	}
	recs, err := s.repo.ActiveBetween(ctx, productID, periods[0].Start, periods[len(periods)-1].Until())
	if err != nil {
		return nil, err
	}

	entries := make([]report.Entry, len(recs))
	for i, r := range recs {
		entries[i] = report.Entry{Amount: r.Price, At: r.ValidFrom}
	}
	out := make([]TrendPoint, 0, len(periods))
	for _, tp := range report.Trend(entries, periods) {
		avg := decimal.Zero
		if tp.Count > 0 {
			avg = tp.TotalAmount.Div(decimal.NewFromInt(int64(tp.Count))).Round(2)
		}
		out = append(out, TrendPoint{Month: tp.Month, AveragePrice: avg, Observations: tp.Count})
	}
	return out, nil
}
