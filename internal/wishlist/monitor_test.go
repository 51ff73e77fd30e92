package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
)

func newMonitor(res PriceResolver, repo Repository, n Notifier) *Monitor {
	return NewMonitor(res, repo, n, 4, zap.NewNop())
}

func TestJudgeEqualityCountsAsReached(t *testing.T) {
	res := newResolver()
	res.set("p1", "6.00", "7.10")
	m := newMonitor(res, newMemRepo(), &recordingNotifier{})

	ev, err := m.Evaluate(context.Background(), Item{ProductID: "p1", TargetPrice: d("6.00")}, now)
	require.NoError(t, err)
	assert.True(t, ev.IsTargetReached)
	assert.True(t, ev.PotentialSaving.IsZero())
	assert.True(t, ev.CurrentPrice.Equal(d("6.00")))
	assert.Equal(t, "s1", ev.LowestPrice.StoreID)
}

func TestEvaluateWithoutPrice(t *testing.T) {
	res := newResolver()
	res.set("p-empty")
	m := newMonitor(res, newMemRepo(), &recordingNotifier{})

	for _, pid := range []string{"p-empty", "p-missing"} {
		ev, err := m.Evaluate(context.Background(), Item{ProductID: pid, TargetPrice: d("1")}, now)
		require.NoError(t, err)
		assert.False(t, ev.IsTargetReached, pid)
		assert.Nil(t, ev.CurrentPrice, pid)
		assert.True(t, ev.PotentialSaving.IsZero(), pid)
	}
}

func TestAggregateStatsEmpty(t *testing.T) {
	m := newMonitor(newResolver(), newMemRepo(), &recordingNotifier{})
	st, err := m.AggregateStats(context.Background(), nil, now)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalItems)
	assert.Equal(t, 0, st.TargetReached)
	assert.True(t, st.AverageTargetPrice.IsZero())
	assert.True(t, st.TotalPotentialSavings.IsZero())
}

func TestAggregateStats(t *testing.T) {
	res := newResolver()
	res.set("p1", "5.80")
	res.set("p2", "12.00", "11.50")
	m := newMonitor(res, newMemRepo(), &recordingNotifier{})

	items := []Item{
		{ProductID: "p1", TargetPrice: d("6.00")},
		{ProductID: "p2", TargetPrice: d("10.00")},
		{ProductID: "p3", TargetPrice: d("2.00")},
	}
	st, err := m.AggregateStats(context.Background(), items, now)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, 1, st.TargetReached)
	assert.True(t, st.AverageTargetPrice.Equal(d("6")))
	assert.True(t, st.TotalPotentialSavings.Equal(d("0.20")))
}

func TestNextNotifyState(t *testing.T) {
	earlier := now.Add(-time.Hour)
	cases := []struct {
		name    string
		cur     NotifyState
		reached bool
		notify  bool
		changed bool
		want    NotifyState
	}{
		{"first reach", NotifyState{}, true, true, true, NotifyState{LastNotifiedAt: &now, TargetReached: true}},
		{"still reached", NotifyState{LastNotifiedAt: &earlier, TargetReached: true}, true, false, false, NotifyState{LastNotifiedAt: &earlier, TargetReached: true}},
		{"lost target", NotifyState{LastNotifiedAt: &earlier, TargetReached: true}, false, false, true, NotifyState{LastNotifiedAt: &earlier}},
		{"never reached", NotifyState{}, false, false, false, NotifyState{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, notify, changed := NextNotifyState(tc.cur, tc.reached, now)
			assert.Equal(t, tc.notify, notify)
			assert.Equal(t, tc.changed, changed)
			assert.Equal(t, tc.want.TargetReached, next.TargetReached)
			assert.True(t, sameTime(tc.want.LastNotifiedAt, next.LastNotifiedAt))
		})
	}
}

func TestCheckNotifiesOncePerTransition(t *testing.T) {
	ctx := context.Background()
	res := newResolver()
	res.set("p1", "6.50")
	repo := newMemRepo()
	n := &recordingNotifier{}
	m := newMonitor(res, repo, n)

	it := &Item{UserID: "u1", ProductID: "p1", ProductName: "Milk", TargetPrice: d("6.00"), Currency: "MYR"}
	require.NoError(t, repo.InsertItem(ctx, it))

	check := func(at time.Time) bool {
		cur, err := repo.GetItemByID(ctx, it.ID)
		require.NoError(t, err)
		notified, err := m.Check(ctx, *cur, at)
		require.NoError(t, err)
		return notified
	}

	assert.False(t, check(now))
	res.set("p1", "5.80")
	assert.True(t, check(now.Add(time.Minute)))
	assert.False(t, check(now.Add(2*time.Minute)))
	assert.False(t, check(now.Add(3*time.Minute)))
	require.Equal(t, 1, n.count())
	assert.True(t, n.alerts[0].CurrentPrice.Equal(d("5.80")))
	assert.Equal(t, "u1", n.alerts[0].UserID)

	// цена ушла выше цели и вернулась: новое уведомление
	res.set("p1", "6.40")
	assert.False(t, check(now.Add(4*time.Minute)))
	cur, _ := repo.GetItemByID(ctx, it.ID)
	assert.False(t, cur.TargetReached)
	require.NotNil(t, cur.LastNotifiedAt)
	assert.True(t, cur.LastNotifiedAt.Equal(now.Add(time.Minute)))

	res.set("p1", "5.90")
	assert.True(t, check(now.Add(5*time.Minute)))
	assert.Equal(t, 2, n.count())
}

func TestCheckConcurrentEvaluatorsNotifyOnce(t *testing.T) {
	ctx := context.Background()
	res := newResolver()
	res.set("p1", "5.00")
	repo := newMemRepo()
	n := &recordingNotifier{}
	m := newMonitor(res, repo, n)

	it := &Item{UserID: "u1", ProductID: "p1", TargetPrice: d("6.00")}
	require.NoError(t, repo.InsertItem(ctx, it))
	snapshot, err := repo.GetItemByID(ctx, it.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Check(ctx, *snapshot, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, n.count())
}

func TestCheckNotifierFailure(t *testing.T) {
	ctx := context.Background()
	res := newResolver()
	res.set("p1", "1.00")
	repo := newMemRepo()
	m := newMonitor(res, repo, &recordingNotifier{err: errors.New("sns down")})

	it := &Item{UserID: "u1", ProductID: "p1", TargetPrice: d("6.00")}
	require.NoError(t, repo.InsertItem(ctx, it))
	_, err := m.Check(ctx, *it, now)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	// неотправленное уведомление не фиксирует состояние
	stored, err := repo.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, stored.TargetReached)
	assert.Nil(t, stored.LastNotifiedAt)
}

func TestCheckRetriesAfterNotifierRecovers(t *testing.T) {
	ctx := context.Background()
	res := newResolver()
	res.set("p1", "5.80")
	repo := newMemRepo()
	n := &recordingNotifier{err: errors.New("sns down")}
	m := newMonitor(res, repo, n)

	it := &Item{UserID: "u1", ProductID: "p1", TargetPrice: d("6.00")}
	require.NoError(t, repo.InsertItem(ctx, it))
	_, err := m.Check(ctx, *it, now)
	require.Error(t, err)

	n.mu.Lock()
	n.err = nil
	n.mu.Unlock()

	for i := 1; i <= 3; i++ {
		cur, err := repo.GetItemByID(ctx, it.ID)
		require.NoError(t, err)
		notified, err := m.Check(ctx, *cur, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, i == 1, notified, "check %d", i)
	}
	assert.Equal(t, 1, n.count())

	stored, err := repo.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, stored.TargetReached)
	require.NotNil(t, stored.LastNotifiedAt)
	assert.True(t, now.Add(time.Minute).Equal(*stored.LastNotifiedAt))
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	res := newResolver()
	res.set("p1", "5.80")
	res.set("p2", "9.00")
	repo := newMemRepo()
	n := &recordingNotifier{}
	m := newMonitor(res, repo, n)

	for _, it := range []*Item{
		{UserID: "u1", ProductID: "p1", TargetPrice: d("6.00")},
		{UserID: "u2", ProductID: "p2", TargetPrice: d("8.00")},
		{UserID: "u3", ProductID: "gone", TargetPrice: d("1.00")},
	} {
		require.NoError(t, repo.InsertItem(ctx, it))
	}

	r, err := m.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 3, Notified: 1}, r)

	r, err = m.Sweep(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Notified)
	assert.Equal(t, 1, n.count())
}
