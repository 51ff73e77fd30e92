package prices

import (
	"context"
	"sort"
	"time"

	"github.com/valeevte/PriceLedger/internal/products"
)

// Policy управляет тем, как учитывается окно действия записи.
type Policy struct {
	// HonorValidUntil: запись действует только при at < ValidUntil.
	// По умолчанию ValidUntil информативен и на выбор не влияет.
	HonorValidUntil bool
}

func (p Policy) eligible(r PriceRecord, at time.Time) bool {
	if !r.Status.IsActive() || r.ValidFrom.After(at) {
		return false
	}
	if p.HonorValidUntil && r.ValidUntil != nil && !at.Before(*r.ValidUntil) {
		return false
	}
	return true
}

// supersedes сообщает, вытесняет ли a запись b того же магазина:
// больший validFrom, затем более поздний createdAt, затем больший id.
func supersedes(a, b PriceRecord) bool {
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.After(b.ValidFrom)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SelectEffective выбирает по одной действующей на момент at записи на магазин.
// Результат упорядочен по StoreID и не зависит от порядка входа.
func SelectEffective(records []PriceRecord, at time.Time, policy Policy) []PriceRecord {
	best := make(map[string]PriceRecord)
	for _, r := range records {
		if !policy.eligible(r, at) {
			continue
		}
		if cur, ok := best[r.StoreID]; !ok || supersedes(r, cur) {
			best[r.StoreID] = r
		}
	}

	out := make([]PriceRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}

// ProductLookup — источник товаров для проверки существования.
type ProductLookup interface {
	GetProductByID(ctx context.Context, id string) (*products.Product, error)
}

// Resolver вычисляет эффективные цены товара.
type Resolver struct {
	prices   Repository
	products ProductLookup
	policy   Policy
}

func NewResolver(prices Repository, products ProductLookup, policy Policy) *Resolver {
	return &Resolver{prices: prices, products: products, policy: policy}
}

// Resolve возвращает эффективную цену в каждом магазине на момент at.
// NotFound — только если товара нет.
func (r *Resolver) Resolve(ctx context.Context, productID string, at time.Time) ([]PriceRecord, error) {
	_, recs, err := r.resolve(ctx, productID, at)
	return recs, err
}

func (r *Resolver) resolve(ctx context.Context, productID string, at time.Time) (*products.Product, []PriceRecord, error) {
	p, err := r.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := r.prices.ActiveUpTo(ctx, productID, at)
	if err != nil {
		return nil, nil, err
	}
	return p, SelectEffective(recs, at, r.policy), nil
}
