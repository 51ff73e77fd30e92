package wishlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/prices"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// fakeResolver отдаёт фиксированные эффективные цены по товару.
type fakeResolver struct {
	mu     sync.Mutex
	prices map[string][]prices.PriceRecord
}

func newResolver() *fakeResolver {
	return &fakeResolver{prices: map[string][]prices.PriceRecord{}}
}

func (f *fakeResolver) set(productID string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]prices.PriceRecord, len(values))
	for i, v := range values {
		recs[i] = prices.PriceRecord{
			ID:        fmt.Sprintf("%s-%d", productID, i),
			ProductID: productID,
			StoreID:   fmt.Sprintf("s%d", i+1),
			Price:     d(v),
			Status:    lifecycle.Active,
		}
	}
	f.prices[productID] = recs
}

func (f *fakeResolver) Resolve(_ context.Context, productID string, _ time.Time) ([]prices.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs, ok := f.prices[productID]
	if !ok {
		return nil, apperr.NotFound("Product not found")
	}
	return append([]prices.PriceRecord(nil), recs...), nil
}

type memRepo struct {
	mu    sync.Mutex
	items map[string]*Item
	seq   int
}

func newMemRepo() *memRepo { return &memRepo{items: map[string]*Item{}} }

func (m *memRepo) InsertItem(_ context.Context, it *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	it.ID = fmt.Sprintf("w%d", m.seq)
	it.Status = lifecycle.Active
	it.IsActive = true
	it.CreatedAt = now.Add(time.Duration(m.seq) * time.Second)
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memRepo) GetItemByID(_ context.Context, id string) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Wishlist item not found")
	}
	cp := *it
	return &cp, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, it := range m.items {
		if it.UserID == userID && it.IsActive {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memRepo) ListActive(_ context.Context) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, it := range m.items {
		if it.IsActive {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateItem(_ context.Context, it *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[it.ID]
	if !ok || !cur.IsActive {
		return apperr.NotFound("Wishlist item not found")
	}
	cp := *it
	cp.LastNotifiedAt, cp.TargetReached = cur.LastNotifiedAt, cur.TargetReached
	m.items[it.ID] = &cp
	return nil
}

func (m *memRepo) RetireItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || !it.IsActive {
		return apperr.NotFound("Wishlist item not found")
	}
	it.Status = lifecycle.Retired
	it.IsActive = false
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (m *memRepo) CompareAndSetNotifyState(_ context.Context, id string, expect, next NotifyState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || !it.IsActive {
		return false, nil
	}
	if !sameTime(it.LastNotifiedAt, expect.LastNotifiedAt) || it.TargetReached != expect.TargetReached {
		return false, nil
	}
	it.LastNotifiedAt, it.TargetReached = next.LastNotifiedAt, next.TargetReached
	return true, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, a Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}
