package wishlist

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/metrics"
	"github.com/valeevte/PriceLedger/internal/money"
	"github.com/valeevte/PriceLedger/internal/prices"
)

// PriceResolver — источник эффективных цен.
type PriceResolver interface {
	Resolve(ctx context.Context, productID string, at time.Time) ([]prices.PriceRecord, error)
}

// Monitor сравнивает целевые цены с эффективными и рассылает уведомления.
type Monitor struct {
	resolver PriceResolver
	repo     Repository
	notifier Notifier
	limit    int
	log      *zap.Logger
}

func NewMonitor(resolver PriceResolver, repo Repository, notifier Notifier, limit int, log *zap.Logger) *Monitor {
	if limit < 1 {
		limit = 1
	}
	return &Monitor{resolver: resolver, repo: repo, notifier: notifier, limit: limit, log: log}
}

// lowest — запись с минимальной ценой; при равенстве первая по StoreID.
func lowest(recs []prices.PriceRecord) *prices.PriceRecord {
	var best *prices.PriceRecord
	for i := range recs {
		if best == nil || recs[i].Price.LessThan(best.Price) {
			best = &recs[i]
		}
	}
	return best
}

// Judge сравнивает цель с набором эффективных цен.
func Judge(target decimal.Decimal, effective []prices.PriceRecord) Evaluation {
	ev := Evaluation{PotentialSaving: decimal.Zero}
	lo := lowest(effective)
	if lo == nil {
		return ev
	}
	cur := lo.Price
	ev.CurrentPrice = &cur
	ev.LowestPrice = lo
	ev.IsTargetReached = cur.LessThanOrEqual(target)
	if cur.LessThan(target) {
		ev.PotentialSaving = target.Sub(cur)
	}
	return ev
}

// Evaluate оценивает элемент на момент at. Отсутствующий товар — просто нет цены.
func (m *Monitor) Evaluate(ctx context.Context, it Item, at time.Time) (Evaluation, error) {
	ev, _, err := m.evaluate(ctx, it, at)
	return ev, err
}

func (m *Monitor) evaluate(ctx context.Context, it Item, at time.Time) (Evaluation, []prices.PriceRecord, error) {
	effective, err := m.resolver.Resolve(ctx, it.ProductID, at)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Judge(it.TargetPrice, nil), nil, nil
		}
		return Evaluation{}, nil, err
	}
	return Judge(it.TargetPrice, effective), effective, nil
}

// AggregateStats считает сводку по элементам. Оценки идут параллельно,
// свёртка — в порядке входа.
func (m *Monitor) AggregateStats(ctx context.Context, items []Item, at time.Time) (Stats, error) {
	st := Stats{AverageTargetPrice: decimal.Zero, TotalPotentialSavings: decimal.Zero}
	if len(items) == 0 {
		return st, nil
	}

	evals := make([]Evaluation, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)
	for i, it := range items {
		g.Go(func() error {
			ev, err := m.Evaluate(gctx, it, at)
			if err != nil {
				return err
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	targets := make([]decimal.Decimal, len(items))
	for i, ev := range evals {
		targets[i] = items[i].TargetPrice
		if ev.IsTargetReached {
			st.TargetReached++
		}
		st.TotalPotentialSavings = st.TotalPotentialSavings.Add(ev.PotentialSaving)
	}
	st.TotalItems = len(items)
	st.AverageTargetPrice = money.Mean(targets)
	return st, nil
}

// NextNotifyState — переход автомата троттлинга. notify: нужно отправить
// уведомление; changed: состояние надо записать.
func NextNotifyState(cur NotifyState, reached bool, now time.Time) (next NotifyState, notify, changed bool) {
	switch {
	case reached && !cur.TargetReached:
		t := now
		return NotifyState{LastNotifiedAt: &t, TargetReached: true}, true, true
	case !reached && cur.TargetReached:
		return NotifyState{LastNotifiedAt: cur.LastNotifiedAt, TargetReached: false}, false, true
	}
	return cur, false, false
}

// Check оценивает элемент и, если цель только что достигнута, уведомляет
// владельца. Состояние пишется через CAS до отправки; проигравший гонку
// не уведомляет. При ошибке отправки состояние откатывается.
func (m *Monitor) Check(ctx context.Context, it Item, now time.Time) (bool, error) {
	now = now.Truncate(time.Microsecond)
	ev, _, err := m.evaluate(ctx, it, now)
	if err != nil {
		return false, err
	}
	next, notify, changed := NextNotifyState(it.NotifyState(), ev.IsTargetReached, now)
	if !changed {
		return false, nil
	}
	ok, err := m.repo.CompareAndSetNotifyState(ctx, it.ID, it.NotifyState(), next)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.ThrottleConflicts.Inc()
		m.log.Debug("notify state changed concurrently", zap.String("item_id", it.ID))
		return false, nil
	}
	if !notify {
		return false, nil
	}

	alert := Alert{
		ItemID:       it.ID,
		UserID:       it.UserID,
		ProductID:    it.ProductID,
		ProductName:  it.ProductName,
		TargetPrice:  it.TargetPrice,
		CurrentPrice: *ev.CurrentPrice,
		StoreID:      ev.LowestPrice.StoreID,
		Currency:     it.Currency,
		At:           now,
	}
	if err := m.notifier.Notify(ctx, alert); err != nil {
		metrics.AlertsEmitted.WithLabelValues("failed").Inc()
		// откат состояния, чтобы следующий проход повторил отправку
		if _, rerr := m.repo.CompareAndSetNotifyState(ctx, it.ID, next, it.NotifyState()); rerr != nil {
			m.log.Error("failed to roll back notify state", zap.String("item_id", it.ID), zap.Error(rerr))
		}
		return false, apperr.Upstream("failed to send wishlist alert", err)
	}
	metrics.AlertsEmitted.WithLabelValues("sent").Inc()
	return true, nil
}

// SweepResult — итог прохода по всем активным элементам.
type SweepResult struct {
	Checked  int
	Notified int
	Failed   int
}

// Sweep проверяет все активные элементы. Ошибка одного элемента не
// прерывает проход.
func (m *Monitor) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	items, err := m.repo.ListActive(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		notified, err := m.Check(ctx, it, now)
		res.Checked++
		if err != nil {
			res.Failed++
			m.log.Warn("wishlist check failed", zap.String("item_id", it.ID), zap.Error(err))
			continue
		}
		if notified {
			res.Notified++
		}
	}
	return res, nil
}
