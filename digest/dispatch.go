package digest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modestanalytics/api/mail"
	"modestanalytics/api/models"
)

const subject = "Your weekly website stats"

// OwnerLister yields every registered owner.
type OwnerLister interface {
	List(ctx context.Context) ([]models.Owner, error)
}

// EventSource yields one owner's pageviews inside [start, end).
type EventSource interface {
	QueryWindow(ctx context.Context, ownerID int, start, end time.Time) ([]models.Pageview, error)
}

// Dispatcher builds and emails one digest per owner. Owners are
// processed independently; a failed query or send is logged and the
// batch carries on.
type Dispatcher struct {
	owners      OwnerLister
	events      EventSource
	mailer      mail.Mailer
	logger      *zap.Logger
	window      time.Duration
	sendTimeout time.Duration
}

func NewDispatcher(owners OwnerLister, events EventSource, mailer mail.Mailer, logger *zap.Logger, window time.Duration) *Dispatcher {
	return &Dispatcher{
		owners:      owners,
		events:      events,
		mailer:      mailer,
		logger:      logger,
		window:      window,
		sendTimeout: 30 * time.Second,
	}
}

// DispatchAll sends every owner the digest for [now-window, now).
// Fire and forget: no error escapes, per-owner failures only reduce the
// sent count in the run summary.
func (d *Dispatcher) DispatchAll(ctx context.Context, now time.Time) {
	runID := uuid.New().String()
	log := d.logger.With(zap.String("run_id", runID))

	owners, err := d.owners.List(ctx)
	if err != nil {
		log.Error("Failed to list owners for digest run", zap.Error(err))
		return
	}

	start := now.Add(-d.window)
	sent, failed := 0, 0
	for _, owner := range owners {
		if err := d.dispatchOne(ctx, owner, start, now); err != nil {
			failed++
			log.Warn("Digest skipped for owner",
				zap.Int("owner_id", owner.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	log.Info("Digest run finished",
		zap.Int("owners", len(owners)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, owner models.Owner, start, end time.Time) error {
	events, err := d.events.QueryWindow(ctx, owner.ID, start, end)
	if err != nil {
		return err
	}

	report := Aggregate(events, start, end)
	text, html, err := Render(report)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.mailer.Send(sendCtx, owner.Email, subject, text, html)
}
