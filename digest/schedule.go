package digest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Trigger polls the clock and fires the dispatcher once per weekly slot.
// It is a two-state machine: idle until a poll lands inside the
// configured weekday+hour, then armed-off until the first poll outside
// that hour resets it. Clock injection keeps it testable.
type Trigger struct {
	weekday  time.Weekday
	hour     int
	interval time.Duration
	dispatch func(ctx context.Context, now time.Time)
	logger   *zap.Logger
	now      func() time.Time

	fired bool
}

func NewTrigger(weekday time.Weekday, hour int, interval time.Duration, dispatch func(ctx context.Context, now time.Time), logger *zap.Logger) *Trigger {
	return &Trigger{
		weekday:  weekday,
		hour:     hour,
		interval: interval,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls every interval until ctx is cancelled. A panicking dispatch
// is recovered so one bad cycle cannot kill the scheduler.
func (t *Trigger) Run(ctx context.Context) {
	t.logger.Info("Digest scheduler started",
		zap.Stringer("weekday", t.weekday),
		zap.Int("hour", t.hour),
		zap.Duration("poll_interval", t.interval),
	)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Digest scheduler stopped")
			return
		case <-ticker.C:
			t.Tick(ctx, t.now())
		}
	}
}

// Tick evaluates one poll. It fires the dispatcher exactly once per
// matching hour: the first poll inside the slot while idle fires, and
// the state resets on the first poll outside the hour. Reports whether
// this tick fired.
func (t *Trigger) Tick(ctx context.Context, now time.Time) bool {
	if now.Weekday() != t.weekday || now.Hour() != t.hour {
		t.fired = false
		return false
	}
	if t.fired {
		return false
	}
	t.fired = true
	t.safeDispatch(ctx, now)
	return true
}

func (t *Trigger) safeDispatch(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Digest dispatch panicked", zap.Any("panic", r))
		}
	}()
	t.dispatch(ctx, now)
}
