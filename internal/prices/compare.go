package prices

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/cache"
	"github.com/valeevte/PriceLedger/internal/metrics"
	"github.com/valeevte/PriceLedger/internal/money"
	"github.com/valeevte/PriceLedger/internal/stores"
)

type StoreLookup interface {
	GetStoreByID(ctx context.Context, id string) (*stores.Store, error)
}

// Summarize сортирует цены по возрастанию (стабильно) и считает статистику.
func Summarize(list []StorePrice) Comparison {
	sorted := make([]StorePrice, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.Price.LessThan(sorted[j].Price.Price)
	})

	cmp := Comparison{Prices: sorted, AveragePrice: decimal.Zero, PriceRange: decimal.Zero}
	if len(sorted) == 0 {
		return cmp
	}
	values := make([]decimal.Decimal, len(sorted))
	for i, sp := range sorted {
		values[i] = sp.Price.Price
	}
	lo, hi := sorted[0].Price, sorted[len(sorted)-1].Price
	cmp.LowestPrice = &lo
	cmp.HighestPrice = &hi
	cmp.AveragePrice = money.Mean(values)
	cmp.PriceRange = hi.Price.Sub(lo.Price)
	return cmp
}

// Comparator собирает сравнение цен по магазинам.
type Comparator struct {
	resolver *Resolver
	stores   StoreLookup
	cache    cache.Cache
	ttl      time.Duration
	limit    int
	log      *zap.Logger
}

type ComparatorOption func(*Comparator)

// WithCache включает кэширование сравнений "на сейчас".
func WithCache(c cache.Cache, ttl time.Duration) ComparatorOption {
	return func(cmp *Comparator) {
		cmp.cache = c
		cmp.ttl = ttl
	}
}

func NewComparator(resolver *Resolver, stores StoreLookup, limit int, log *zap.Logger, opts ...ComparatorOption) *Comparator {
	if limit < 1 {
		limit = 1
	}
	c := &Comparator{resolver: resolver, stores: stores, limit: limit, log: log}
	for _, o := range opts {
		o(c)
	}
	return c
}

func cacheKey(productID string) string { return "compare:" + productID }

// Compare сравнивает цены на момент at.
func (c *Comparator) Compare(ctx context.Context, productID string, at time.Time) (*Comparison, error) {
	p, effective, err := c.resolver.resolve(ctx, productID, at)
	if err != nil {
		return nil, err
	}

	// магазины читаются параллельно, результат пишется по индексу
	slots := make([]*StorePrice, len(effective))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, rec := range effective {
		g.Go(func() error {
			s, err := c.stores.GetStoreByID(gctx, rec.StoreID)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					c.log.Warn("store of price not found", zap.String("store_id", rec.StoreID), zap.String("price_id", rec.ID))
					return nil
				}
				return err
			}
			if !s.IsActive {
				return nil
			}
			slots[i] = &StorePrice{Store: *s, Price: rec, IsAvailable: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := make([]StorePrice, 0, len(slots))
	for _, sp := range slots {
		if sp != nil {
			list = append(list, *sp)
		}
	}
	cmp := Summarize(list)
	cmp.Product = p
	cmp.At = at
	metrics.ComparisonsServed.WithLabelValues("ledger").Inc()
	return &cmp, nil
}

// CompareNow — сравнение на текущий момент; использует кэш, если он настроен.
// Закэшированный результат отдаётся с At = now: TTL записи не переживает
// ближайшей смены набора эффективных цен.
func (c *Comparator) CompareNow(ctx context.Context, productID string, now time.Time) (*Comparison, error) {
	if c.cache == nil {
		return c.Compare(ctx, productID, now)
	}

	var cached Comparison
	err := c.cache.Get(ctx, cacheKey(productID), &cached)
	if err == nil {
		metrics.ComparisonsServed.WithLabelValues("cache").Inc()
		cached.At = now
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("comparison cache read failed", zap.String("product_id", productID), zap.Error(err))
	}

	cmp, err := c.Compare(ctx, productID, now)
	if err != nil {
		return nil, err
	}
	ttl, err := c.cacheTTL(ctx, productID, cmp, now)
	if err != nil {
		c.log.Warn("comparison cache ttl lookup failed", zap.String("product_id", productID), zap.Error(err))
		return cmp, nil
	}
	if ttl <= 0 {
		return cmp, nil
	}
	if err := c.cache.Set(ctx, cacheKey(productID), cmp, ttl); err != nil {
		c.log.Warn("comparison cache write failed", zap.String("product_id", productID), zap.Error(err))
	}
	return cmp, nil
}

// cacheTTL урезает TTL до ближайшего validFrom отложенной записи, а при
// строгом окне ещё и до ближайшего validUntil эффективной цены.
func (c *Comparator) cacheTTL(ctx context.Context, productID string, cmp *Comparison, now time.Time) (time.Duration, error) {
	ttl := c.ttl
	upcoming, err := c.resolver.prices.ActiveBetween(ctx, productID, now, now.Add(ttl))
	if err != nil {
		return 0, err
	}
	for _, r := range upcoming {
		if d := r.ValidFrom.Sub(now); d < ttl {
			ttl = d
		}
	}
	if c.resolver.policy.HonorValidUntil {
		for _, sp := range cmp.Prices {
			if vu := sp.Price.ValidUntil; vu != nil {
				if d := vu.Sub(now); d < ttl {
					ttl = d
				}
			}
		}
	}
	return ttl, nil
}

// Invalidate сбрасывает закэшированное сравнение товара.
func (c *Comparator) Invalidate(ctx context.Context, productID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, cacheKey(productID)); err != nil {
		c.log.Warn("comparison cache invalidation failed", zap.String("product_id", productID), zap.Error(err))
	}
}
