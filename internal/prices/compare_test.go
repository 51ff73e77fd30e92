package prices

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/stores"
)

func sp(id, storeID, price string) StorePrice {
	return StorePrice{Store: stores.Store{ID: storeID}, Price: rec(id, storeID, price, t0), IsAvailable: true}
}

func TestSummarizeTwoStores(t *testing.T) {
	cmp := Summarize([]StorePrice{sp("b", "s2", "7.20"), sp("a", "s1", "6.50")})
	require.Len(t, cmp.Prices, 2)
	assert.Equal(t, "s1", cmp.Prices[0].Store.ID)
	assert.True(t, cmp.LowestPrice.Price.Equal(d("6.50")))
	assert.True(t, cmp.HighestPrice.Price.Equal(d("7.20")))
	assert.True(t, cmp.AveragePrice.Equal(d("6.85")))
	assert.True(t, cmp.PriceRange.Equal(d("0.70")))
}

func TestSummarizeEmptyAndSingle(t *testing.T) {
	empty := Summarize(nil)
	assert.Nil(t, empty.LowestPrice)
	assert.Nil(t, empty.HighestPrice)
	assert.True(t, empty.AveragePrice.IsZero())
	assert.True(t, empty.PriceRange.IsZero())
	assert.NotNil(t, empty.Prices)

	single := Summarize([]StorePrice{sp("a", "s1", "3.10")})
	assert.True(t, single.PriceRange.IsZero())
	assert.True(t, single.AveragePrice.Equal(d("3.10")))
	assert.Equal(t, single.LowestPrice, single.HighestPrice)
}

func TestSummarizeShuffleInvariant(t *testing.T) {
	in := []StorePrice{
		sp("a", "s1", "4.00"), sp("b", "s2", "3.50"), sp("c", "s3", "5.25"),
		sp("e", "s5", "2.99"), sp("f", "s6", "6.10"),
	}
	want := Summarize(in)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]StorePrice(nil), in...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Summarize(shuffled)
		assert.True(t, want.AveragePrice.Equal(got.AveragePrice))
		assert.True(t, want.PriceRange.Equal(got.PriceRange))
		assert.Equal(t, want.LowestPrice.ID, got.LowestPrice.ID)
		assert.Equal(t, want.HighestPrice.ID, got.HighestPrice.ID)
	}
}

func newComparator(repo Repository, st fakeStores, opts ...ComparatorOption) *Comparator {
	res := NewResolver(repo, fakeProducts{"p1": product("p1")}, Policy{})
	return NewComparator(res, st, 2, zap.NewNop(), opts...)
}

func TestCompareEndToEnd(t *testing.T) {
	repo := &memPrices{}
	ctx := context.Background()
	r1 := rec("", "s1", "6.50", t0.Add(-time.Hour))
	r2 := rec("", "s2", "7.20", t0.Add(-time.Hour))
	require.NoError(t, repo.InsertPrice(ctx, &r1))
	require.NoError(t, repo.InsertPrice(ctx, &r2))

	cmp, err := newComparator(repo, fakeStores{"s1": store("s1"), "s2": store("s2")}).Compare(ctx, "p1", t0)
	require.NoError(t, err)
	assert.Equal(t, "p1", cmp.Product.ID)
	require.Len(t, cmp.Prices, 2)
	assert.True(t, cmp.AveragePrice.Equal(d("6.85")))
	assert.True(t, cmp.PriceRange.Equal(d("0.70")))
	assert.True(t, cmp.Prices[0].IsAvailable)
}

func TestCompareSkipsMissingAndRetiredStores(t *testing.T) {
	repo := &memPrices{}
	ctx := context.Background()
	for _, s := range []string{"s1", "s2", "s3"} {
		r := rec("", s, "5.00", t0.Add(-time.Hour))
		require.NoError(t, repo.InsertPrice(ctx, &r))
	}
	retired := store("s3")
	retired.Status = lifecycle.Retired
	retired.IsActive = false

	cmp, err := newComparator(repo, fakeStores{"s1": store("s1"), "s3": retired}).Compare(ctx, "p1", t0)
	require.NoError(t, err)
	require.Len(t, cmp.Prices, 1)
	assert.Equal(t, "s1", cmp.Prices[0].Store.ID)
}

type failingStores struct{}

func (failingStores) GetStoreByID(context.Context, string) (*stores.Store, error) {
	return nil, apperr.Upstream("failed to fetch store", errors.New("connection reset"))
}

func TestCompareStoreFailurePropagates(t *testing.T) {
	repo := &memPrices{}
	r := rec("", "s1", "5.00", t0.Add(-time.Hour))
	require.NoError(t, repo.InsertPrice(context.Background(), &r))

	res := NewResolver(repo, fakeProducts{"p1": product("p1")}, Policy{})
	_, err := NewComparator(res, failingStores{}, 4, zap.NewNop()).Compare(context.Background(), "p1", t0)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestCompareUnknownProduct(t *testing.T) {
	_, err := newComparator(&memPrices{}, fakeStores{}).Compare(context.Background(), "nope", t0)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCompareNowUsesCache(t *testing.T) {
	repo := &memPrices{}
	ctx := context.Background()
	r := rec("", "s1", "6.50", t0.Add(-time.Hour))
	require.NoError(t, repo.InsertPrice(ctx, &r))

	c := newMemCache()
	cmp := newComparator(repo, fakeStores{"s1": store("s1")}, WithCache(c, time.Minute))

	first, err := cmp.CompareNow(ctx, "p1", t0)
	require.NoError(t, err)
	require.Len(t, first.Prices, 1)

	// новая цена не видна, пока кэш не сброшен
	r2 := rec("", "s1", "5.00", t0.Add(-time.Minute))
	require.NoError(t, repo.InsertPrice(ctx, &r2))
	cached, err := cmp.CompareNow(ctx, "p1", t0)
	require.NoError(t, err)
	assert.True(t, cached.LowestPrice.Price.Equal(d("6.50")))

	cmp.Invalidate(ctx, "p1")
	fresh, err := cmp.CompareNow(ctx, "p1", t0)
	require.NoError(t, err)
	assert.True(t, fresh.LowestPrice.Price.Equal(d("5.00")))
	assert.Equal(t, []string{"compare:p1"}, c.deleted)
}

func TestCompareNowTTLStopsAtPendingPrice(t *testing.T) {
	repo := &memPrices{}
	ctx := context.Background()
	cur := rec("", "s1", "6.50", t0.Add(-time.Hour))
	next := rec("", "s1", "5.90", t0.Add(20*time.Second))
	require.NoError(t, repo.InsertPrice(ctx, &cur))
	require.NoError(t, repo.InsertPrice(ctx, &next))

	c := newMemCache()
	cmp := newComparator(repo, fakeStores{"s1": store("s1")}, WithCache(c, time.Minute))

	first, err := cmp.CompareNow(ctx, "p1", t0)
	require.NoError(t, err)
	assert.True(t, first.LowestPrice.Price.Equal(d("6.50")))
	assert.Equal(t, 20*time.Second, c.ttls["compare:p1"])

	later := t0.Add(10 * time.Second)
	cached, err := cmp.CompareNow(ctx, "p1", later)
	require.NoError(t, err)
	assert.True(t, later.Equal(cached.At))
}

func TestCompareNowTTLStopsAtValidUntil(t *testing.T) {
	repo := &memPrices{}
	ctx := context.Background()
	r := rec("", "s1", "6.50", t0.Add(-time.Hour))
	until := t0.Add(5 * time.Second)
	r.ValidUntil = &until
	require.NoError(t, repo.InsertPrice(ctx, &r))

	c := newMemCache()
	res := NewResolver(repo, fakeProducts{"p1": product("p1")}, Policy{HonorValidUntil: true})
	cmp := NewComparator(res, fakeStores{"s1": store("s1")}, 2, zap.NewNop(), WithCache(c, time.Minute))

	_, err := cmp.CompareNow(ctx, "p1", t0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.ttls["compare:p1"])
}
