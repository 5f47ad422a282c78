// Package ticker periodically forgets episodes that were never finished.
package ticker

import (
	"context"
	"fmt"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/episode"
	"github.com/rs/zerolog"
)

type Sweeper struct {
	logger *zerolog.Logger
	store  episode.Store
	maxAge time.Duration
	now    func() time.Time
}

func New(logger *zerolog.Logger, store episode.Store, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		logger: logger,
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Tick removes every episode that started more than maxAge ago.
func (w *Sweeper) Tick(ctx context.Context) error {
	eps, err := w.store.List()
	if err != nil {
		return fmt.Errorf("failed to retrieve episodes: %w", err)
	}

	now := w.now()

	for _, ep := range eps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Oldest first, so the rest are younger.
		if ep.Elapsed(now) <= w.maxAge {
			break
		}

		logger := w.logger.With().Str("id", ep.ID).Time("startedAt", ep.StartedAt).Logger()

		if err := w.store.Remove(ep.ID); err != nil {
			logger.Err(err).Msg("Failed to remove episode from store.")
			continue
		}
		logger.Info().Msg("Expired episode.")
	}

	return nil
}

// Run calls Tick every interval until ctx is done.
func (w *Sweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.Tick(ctx); err != nil && ctx.Err() == nil {
				w.logger.Err(err).Msg("Episode sweep failed.")
			}
		}
	}
}
