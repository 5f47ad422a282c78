// Package api serves gas price bids and override controls to operators and
// transaction senders.
package api

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/episode"
	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/DIMO-Network/gas-price-strategy/internal/override"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
)

// Strategy is satisfied by *gasprice.Dynamic.
type Strategy interface {
	GasPrice(ctx context.Context, elapsed time.Duration) (*big.Int, error)
	Describe(ctx context.Context) string
	Override() *gasprice.Override
}

type Handler struct {
	strategy  Strategy
	episodes  episode.Store
	publisher override.Publisher
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewHandler builds the API handlers. publisher may be nil, in which case
// overrides only apply to this instance.
func NewHandler(strategy Strategy, episodes episode.Store, publisher override.Publisher, logger *zerolog.Logger) *Handler {
	return &Handler{
		strategy:  strategy,
		episodes:  episodes,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// NewApp builds the fiber app with all routes registered.
func NewApp(h *Handler, logger *zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(MetricsAndLogMiddleware(logger))
	app.Use(PanicRecoveryMiddleware(logger))

	v1 := app.Group("/v1")
	v1.Get("/gas-price", h.GetGasPrice)
	v1.Get("/strategy", h.GetStrategy)
	v1.Get("/override", h.GetOverride)
	v1.Put("/override", h.PutOverride)
	v1.Get("/episodes", h.ListEpisodes)
	v1.Post("/episodes", h.CreateEpisode)
	v1.Get("/episodes/:id/gas-price", h.GetEpisodeGasPrice)
	v1.Delete("/episodes/:id", h.DeleteEpisode)

	return app
}

type GasPriceResponse struct {
	// GasPrice is in wei, as a decimal string.
	GasPrice string `json:"gasPrice"`
	Elapsed  string `json:"elapsed"`
}

type StrategyResponse struct {
	Description string `json:"description"`
}

// OverrideBody carries a price in Gwei both ways. Null means no override.
type OverrideBody struct {
	GasPrice *string `json:"gasPrice"`
}

type CreateEpisodeRequest struct {
	ID string `json:"id"`
}

// GetGasPrice returns the bid for a transaction pending for the duration in
// the elapsed query parameter. Both Go durations ("90s") and plain seconds
// are accepted; a missing value means zero.
func (h *Handler) GetGasPrice(c *fiber.Ctx) error {
	elapsed, err := parseElapsed(c.Query("elapsed"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return h.respondGasPrice(c, elapsed)
}

func (h *Handler) GetStrategy(c *fiber.Ctx) error {
	return c.JSON(StrategyResponse{Description: h.strategy.Describe(c.UserContext())})
}

func (h *Handler) GetOverride(c *fiber.Ctx) error {
	var out OverrideBody
	if p := h.strategy.Override().Read(); p != nil {
		s := decimal.NewFromBigInt(p, -9).String()
		out.GasPrice = &s
	}
	return c.JSON(out)
}

func (h *Handler) PutOverride(c *fiber.Ctx) error {
	var body OverrideBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "couldn't parse request body")
	}

	var price *big.Int
	if body.GasPrice != nil && strings.TrimSpace(*body.GasPrice) != "" {
		p, err := gasprice.ParseGwei(*body.GasPrice)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		price = p
	}

	h.strategy.Override().Update(price)
	metrics.OverrideUpdatesTotal.WithLabelValues("api").Inc()
	if price == nil {
		h.logger.Info().Msg("Cleared gas price override.")
	} else {
		h.logger.Info().Str("gasPrice", price.String()).Msg("Set gas price override.")
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(price); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "override applied here but not published: "+err.Error())
		}
	}

	return h.GetOverride(c)
}

func (h *Handler) ListEpisodes(c *fiber.Ctx) error {
	eps, err := h.episodes.List()
	if err != nil {
		return err
	}
	return c.JSON(eps)
}

// CreateEpisode starts timing a pending transaction. An ID is generated when
// the body does not supply one.
func (h *Handler) CreateEpisode(c *fiber.Ctx) error {
	var req CreateEpisodeRequest
	if len(c.Body()) != 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "couldn't parse request body")
		}
	}
	if req.ID == "" {
		req.ID = ksuid.New().String()
	}

	if err := h.episodes.New(&episode.Episode{ID: req.ID, StartedAt: h.now()}); err != nil {
		return err
	}

	ep, err := h.episodes.Get(req.ID)
	if err != nil {
		return err
	}

	h.logger.Info().Str("id", ep.ID).Msg("Started episode.")

	return c.Status(fiber.StatusCreated).JSON(ep)
}

func (h *Handler) GetEpisodeGasPrice(c *fiber.Ctx) error {
	ep, err := h.episodes.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, episode.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return h.respondGasPrice(c, ep.Elapsed(h.now()))
}

func (h *Handler) DeleteEpisode(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.episodes.Remove(id); err != nil {
		if errors.Is(err, episode.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	h.logger.Info().Str("id", id).Msg("Finished episode.")

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) respondGasPrice(c *fiber.Ctx, elapsed time.Duration) error {
	price, err := h.strategy.GasPrice(c.UserContext(), elapsed)
	if err != nil {
		if errors.Is(err, gasprice.ErrNodeQuery) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.JSON(GasPriceResponse{
		GasPrice: price.String(),
		Elapsed:  elapsed.String(),
	})
}

func parseElapsed(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		secs, serr := strconv.ParseInt(s, 10, 64)
		if serr != nil {
			return 0, errors.New("elapsed must be a duration such as 90s or a number of seconds")
		}
		if secs > math.MaxInt64/int64(time.Second) {
			return 0, errors.New("elapsed is too large")
		}
		d = time.Duration(secs) * time.Second
	}

	if d < 0 {
		return 0, errors.New("elapsed must not be negative")
	}

	return d, nil
}
