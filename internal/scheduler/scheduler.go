package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task — одна итерация периодической работы.
type Task func(ctx context.Context) error

// Config конфигурация планировщика
type Config struct {
	Name     string
	Interval time.Duration
	// не выполнять проход сразу при старте
	SkipInitial bool
}

const defaultInterval = 60 * time.Second

// Run выполняет task по тикеру и блокирует выполнение, пока ctx не отменён.
// Ошибка прохода логируется, следующий проход выполняется по расписанию.
func Run(ctx context.Context, cfg Config, log *zap.Logger, task Task) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	log = log.With(zap.String("job", cfg.Name))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("scheduler started", zap.Duration("interval", interval))

	if !cfg.SkipInitial {
		runOnce(ctx, log, task)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			runOnce(ctx, log, task)
		}
	}
}

func runOnce(ctx context.Context, log *zap.Logger, task Task) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		// паника в задаче не должна останавливать планировщик
		if r := recover(); r != nil {
			log.Error("scheduler task panicked", zap.Any("panic", r))
		}
	}()
	if err := task(ctx); err != nil && ctx.Err() == nil {
		log.Warn("scheduler task failed", zap.Error(err))
	}
}
