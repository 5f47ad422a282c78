package gasstation

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	// DefaultRefresh is how often a feed is polled.
	DefaultRefresh = 60 * time.Second
	// DefaultExpiry is how long a reading stays usable after it was fetched.
	DefaultExpiry = 600 * time.Second
)

type reading struct {
	price     *big.Int
	fetchedAt time.Time
}

// Feed keeps the latest fast price from a Source fresh in the background.
// Start begins polling and Stop ends it; whoever calls Start must call Stop.
type Feed struct {
	source  Source
	refresh time.Duration
	expiry  time.Duration
	logger  *zerolog.Logger
	cb      *gobreaker.CircuitBreaker[*big.Int]
	now     func() time.Time

	latest atomic.Pointer[reading]

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

var _ gasprice.Oracle = (*Feed)(nil)

func NewFeed(source Source, refresh, expiry time.Duration, logger *zerolog.Logger) *Feed {
	l := logger.With().Str("feed", source.Name()).Logger()

	return &Feed{
		source:  source,
		refresh: refresh,
		expiry:  expiry,
		logger:  &l,
		cb: gobreaker.NewCircuitBreaker[*big.Int](gobreaker.Settings{
			Name:    source.Name(),
			Timeout: refresh,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Feed circuit breaker changed state.")
			},
		}),
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (f *Feed) Name() string {
	return f.source.Name()
}

// FastPrice returns the cached reading if it has not expired.
func (f *Feed) FastPrice() (*big.Int, bool) {
	r := f.latest.Load()
	if r == nil {
		return nil, false
	}
	if f.now().Sub(r.fetchedAt) > f.expiry {
		return nil, false
	}
	return new(big.Int).Set(r.price), true
}

// Refresh fetches a new reading now. On failure the previous reading is kept
// until it expires.
func (f *Feed) Refresh(ctx context.Context) error {
	start := time.Now()
	price, err := f.cb.Execute(func() (*big.Int, error) {
		return f.source.Fetch(ctx)
	})
	metrics.FeedFetchDuration.WithLabelValues(f.source.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(f.source.Name(), "error").Inc()
		return err
	}

	metrics.FeedFetchesTotal.WithLabelValues(f.source.Name(), "ok").Inc()
	f.latest.Store(&reading{price: price, fetchedAt: f.now()})
	f.logger.Debug().Str("fastPrice", price.String()).Msg("Feed refreshed.")

	return nil
}

// Start polls the source immediately and then every refresh interval until
// Stop is called or ctx is done. Only the first call has an effect, and a
// Feed that was stopped cannot be started.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started || f.stopped {
		return
	}
	f.started = true
	go f.run(ctx)
}

// Stop ends polling and waits for the loop to exit. It is safe to call more
// than once, and before Start.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.stopped {
		f.stopped = true
		close(f.stop)
	}
	started := f.started
	f.mu.Unlock()

	if started {
		<-f.done
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-f.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(f.refresh)
	defer ticker.Stop()

	for {
		if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
			f.logger.Err(err).Msg("Failed to refresh feed.")
		}

		select {
		case <-ctx.Done():
			f.logger.Info().Msg("Feed stopped.")
			return
		case <-ticker.C:
		}
	}
}
