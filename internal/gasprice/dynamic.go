package gasprice

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DynamicConfig holds the settings of a Dynamic strategy. It does not change
// after construction.
type DynamicConfig struct {
	// InitialMultiplier scales the node price when the oracle has a reading.
	InitialMultiplier decimal.Decimal
	// ReactiveMultiplier is applied once per completed Step.
	ReactiveMultiplier decimal.Decimal
	Step               time.Duration
	// Maximum is the ceiling, in wei, for every price the strategy returns.
	Maximum *big.Int
}

const (
	sourceOracle   = "oracle"
	sourceOverride = "override"
	sourceNode     = "node"
)

// Dynamic picks a starting price from the oracle, the override or the node,
// in that order, and escalates it geometrically.
//
// The oracle is only used as a congestion signal: when it has a reading, the
// baseline is the node price times InitialMultiplier, not the oracle's own
// number.
type Dynamic struct {
	cfg       DynamicConfig
	node      NodePricer
	oracle    Oracle
	override  *Override
	escalator *Geometric
	logger    *zerolog.Logger
}

// NewDynamic validates cfg and builds the strategy. The oracle may be nil.
// The override may be nil too, in which case an empty one is created so that
// operators can still set a price later. The caller keeps ownership of the
// oracle's background refresh and must stop it.
func NewDynamic(cfg DynamicConfig, node NodePricer, oracle Oracle, override *Override, logger *zerolog.Logger) (*Dynamic, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if override == nil {
		override = NewOverride(nil)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if fixed := override.Read(); fixed != nil && fixed.Cmp(cfg.Maximum) > 0 {
		return nil, &ConfigError{
			Field:  "fixed gas price",
			Value:  fixed.String(),
			Reason: "must not exceed maximum",
			Limit:  cfg.Maximum.String(),
		}
	}

	d := &Dynamic{
		cfg:      cfg,
		node:     node,
		oracle:   oracle,
		override: override,
		logger:   logger,
	}
	d.escalator = NewGeometric(StrategyFunc(d.baseline), cfg.Step, cfg.ReactiveMultiplier, cfg.Maximum)

	return d, nil
}

func (c *DynamicConfig) validate() error {
	if c.InitialMultiplier.IsNegative() {
		return &ConfigError{Field: "initial multiplier", Value: c.InitialMultiplier.String(), Reason: "must not be negative"}
	}
	if c.ReactiveMultiplier.IsNegative() {
		return &ConfigError{Field: "reactive multiplier", Value: c.ReactiveMultiplier.String(), Reason: "must not be negative"}
	}
	if c.Step <= 0 {
		return &ConfigError{Field: "escalation step", Value: c.Step.String(), Reason: "must be positive"}
	}
	if c.Maximum == nil {
		return &ConfigError{Field: "maximum gas price", Value: "<nil>", Reason: "must be set"}
	}
	if c.Maximum.Sign() < 0 {
		return &ConfigError{Field: "maximum gas price", Value: c.Maximum.String(), Reason: "must not be negative"}
	}
	return nil
}

// GasPrice returns the bid for a transaction that has been pending for
// elapsed. Oracle outages fall through to the next source silently; a node
// failure comes back as a *NodeError.
func (d *Dynamic) GasPrice(ctx context.Context, elapsed time.Duration) (*big.Int, error) {
	return d.escalator.GasPrice(ctx, elapsed)
}

func (d *Dynamic) baseline(ctx context.Context, _ time.Duration) (*big.Int, error) {
	if d.oracle != nil {
		if fast, ok := d.oracle.FastPrice(); ok {
			price, err := queryNode(ctx, d.node)
			if err != nil {
				return nil, err
			}
			initial := Multiply(price, d.cfg.InitialMultiplier)
			d.logger.Debug().Str("oracle", d.oracle.Name()).Str("fastPrice", fast.String()).
				Str("nodePrice", price.String()).Str("initialPrice", initial.String()).Msg("Oracle reports a fast price, multiplying node price.")
			metrics.PriceRequestsTotal.WithLabelValues(sourceOracle).Inc()
			return initial, nil
		}
	}

	if fixed := d.override.Read(); fixed != nil {
		metrics.PriceRequestsTotal.WithLabelValues(sourceOverride).Inc()
		return fixed, nil
	}

	price, err := queryNode(ctx, d.node)
	if err != nil {
		return nil, err
	}
	metrics.PriceRequestsTotal.WithLabelValues(sourceNode).Inc()
	return price, nil
}

// Override returns the operator-settable fixed price.
func (d *Dynamic) Override() *Override {
	return d.override
}

// Describe summarizes the active configuration for operators. When the node
// is the active source, its current price is included.
func (d *Dynamic) Describe(ctx context.Context) string {
	var b strings.Builder

	if d.oracle != nil {
		fmt.Fprintf(&b, "%s fast gas price with initial multiplier %s ", d.oracle.Name(), d.cfg.InitialMultiplier)
	} else if fixed := d.override.Read(); fixed != nil {
		fmt.Fprintf(&b, "Fixed gas price %s Gwei ", FormatGwei(fixed))
	} else {
		current := "unknown"
		if price, err := d.node.SuggestGasPrice(ctx); err == nil {
			current = FormatGwei(price) + " Gwei"
		}
		fmt.Fprintf(&b, "Node gas price (currently %s, changes over time) with initial multiplier %s ", current, d.cfg.InitialMultiplier)
	}

	fmt.Fprintf(&b, "and will multiply by %s every %s to a maximum of %s Gwei",
		d.cfg.ReactiveMultiplier, d.cfg.Step, FormatGwei(d.cfg.Maximum))

	return b.String()
}
