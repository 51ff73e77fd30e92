package prices

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/cache"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/products"
	"github.com/valeevte/PriceLedger/internal/stores"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type memPrices struct {
	mu   sync.Mutex
	recs []PriceRecord
	seq  int
}

func (m *memPrices) InsertPrice(_ context.Context, p *PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if p.ID == "" {
		p.ID = fmt.Sprintf("price-%d", m.seq)
	}
	p.Status = lifecycle.Active
	p.IsActive = true
	p.CreatedAt = t0.Add(time.Duration(m.seq) * time.Second)
	m.recs = append(m.recs, *p)
	return nil
}

func (m *memPrices) GetPriceByID(_ context.Context, id string) (*PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			r := m.recs[i]
			return &r, nil
		}
	}
	return nil, apperr.NotFound("Price not found")
}

func (m *memPrices) filter(keep func(PriceRecord) bool) []PriceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PriceRecord
	for _, r := range m.recs {
		if r.Status.IsActive() && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memPrices) History(_ context.Context, productID string, at time.Time, limit int) ([]PriceRecord, error) {
	out := m.filter(func(r PriceRecord) bool { return r.ProductID == productID && !r.ValidFrom.After(at) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ValidFrom.After(out[j].ValidFrom) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPrices) ActiveUpTo(_ context.Context, productID string, at time.Time) ([]PriceRecord, error) {
	return m.filter(func(r PriceRecord) bool { return r.ProductID == productID && !r.ValidFrom.After(at) }), nil
}

func (m *memPrices) ActiveBetween(_ context.Context, productID string, from, until time.Time) ([]PriceRecord, error) {
	return m.filter(func(r PriceRecord) bool {
		return r.ProductID == productID && !r.ValidFrom.Before(from) && r.ValidFrom.Before(until)
	}), nil
}

func (m *memPrices) RetirePrice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id && m.recs[i].Status.IsActive() {
			m.recs[i].Status = lifecycle.Retired
			m.recs[i].IsActive = false
			return nil
		}
	}
	return apperr.NotFound("Price not found")
}

type fakeProducts map[string]*products.Product

func (f fakeProducts) GetProductByID(_ context.Context, id string) (*products.Product, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("Product not found")
}

type fakeStores map[string]*stores.Store

func (f fakeStores) GetStoreByID(_ context.Context, id string) (*stores.Store, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("Store not found")
}

type memCache struct {
	mu      sync.Mutex
	data    map[string]Comparison
	ttls    map[string]time.Duration
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string]Comparison{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	*dst.(*Comparison) = v
	return nil
}

func (c *memCache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = *v.(*Comparison)
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func product(id string) *products.Product {
	return &products.Product{ID: id, Name: "Milk 1L", Status: lifecycle.Active, IsActive: true}
}

func store(id string) *stores.Store {
	return &stores.Store{ID: id, Name: "Store " + id, Status: lifecycle.Active, IsActive: true}
}

func rec(id, storeID, price string, from time.Time) PriceRecord {
	return PriceRecord{
		ID:        id,
		ProductID: "p1",
		StoreID:   storeID,
		Price:     d(price),
		Currency:  "MYR",
		ValidFrom: from,
		Source:    SourceManual,
		Status:    lifecycle.Active,
		IsActive:  true,
		CreatedAt: from,
	}
}
