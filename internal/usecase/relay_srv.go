package usecase

import (
	"context"
	"fmt"
	"time"

	"service-booking/internal/data/repository"
	"service-booking/pkg/events"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// Relay ships committed outbox events to the broker. Delivery is at least once;
// consumers de-duplicate on the event id.
type Relay struct {
	repo      *repository.Repository
	publisher events.Publisher
	cfg       utils.EventsConfig
	log       *zap.Logger
	clock     clock
}

func NewRelay(repo *repository.Repository, publisher events.Publisher, cfg utils.EventsConfig, log *zap.Logger) *Relay {
	if cfg.RelayBatchSize <= 0 {
		cfg.RelayBatchSize = 50
	}
	if cfg.RelayMaxAttempts <= 0 {
		cfg.RelayMaxAttempts = 10
	}
	if cfg.RelayInterval <= 0 {
		cfg.RelayInterval = 2 * time.Second
	}

	return &Relay{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "relay")),
		clock:     time.Now,
	}
}

// RunOnce publishes one batch and returns how many events were sent.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	sent := 0

	err := r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		sent = 0
		pending, err := tx.Outbox.FetchPending(ctx, r.cfg.RelayBatchSize, r.cfg.RelayMaxAttempts)
		if err != nil {
			return err
		}

		for _, ev := range pending {
			msg := events.Message{ID: ev.ID, Key: ev.AggregateID, Type: ev.EventType, Payload: ev.Payload}
			if err := r.publisher.Publish(ctx, msg); err != nil {
				r.log.Warn("Failed to publish outbox event",
					zap.Error(err),
					zap.String("event_id", ev.ID),
					zap.Int("attempts", ev.Attempts+1),
				)
				if err := tx.Outbox.IncrementAttempts(ctx, ev.ID); err != nil {
					return err
				}
				continue
			}
			if err := tx.Outbox.MarkSent(ctx, ev.ID, r.clock()); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("relay outbox: %w", err)
	}

	return sent, nil
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RelayInterval)
	defer ticker.Stop()

	r.log.Info("Outbox relay started", zap.Duration("interval", r.cfg.RelayInterval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Error("Outbox relay batch failed", zap.Error(err))
				continue
			}
			if n > 0 {
				r.log.Debug("Outbox events relayed", zap.Int("count", n))
			}
		}
	}
}
