package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/DIMO-Network/gas-price-strategy/internal/gasstation"
	"github.com/shopspring/decimal"
)

// EscalationStep is how often a pending transaction's price is multiplied.
const EscalationStep = 42 * time.Second

const (
	defaultInitialMultiplier  = "1.0"
	defaultReactiveMultiplier = "1.125"
	defaultGasMaximum         = "5000"
	defaultEpisodeTTL         = 24 * time.Hour
)

// GasSettings are the parsed numeric gas options.
type GasSettings struct {
	// FixedGasPrice is nil when no fixed price applies.
	FixedGasPrice      *big.Int
	InitialMultiplier  decimal.Decimal
	ReactiveMultiplier decimal.Decimal
	Maximum            *big.Int
}

// DynamicConfig turns the settings into a strategy configuration.
func (g *GasSettings) DynamicConfig() gasprice.DynamicConfig {
	return gasprice.DynamicConfig{
		InitialMultiplier:  g.InitialMultiplier,
		ReactiveMultiplier: g.ReactiveMultiplier,
		Step:               EscalationStep,
		Maximum:            g.Maximum,
	}
}

// GasSettings parses and checks the gas options. Gwei amounts are converted
// to wei. The fixed price is ignored when a feed is selected, and a fixed
// price of zero counts as unset.
func (s *Settings) GasSettings() (*GasSettings, error) {
	initial, err := parseMultiplier("GAS_INITIAL_MULTIPLIER", s.GasInitialMultiplier, defaultInitialMultiplier)
	if err != nil {
		return nil, err
	}

	reactive, err := parseMultiplier("GAS_REACTIVE_MULTIPLIER", s.GasReactiveMultiplier, defaultReactiveMultiplier)
	if err != nil {
		return nil, err
	}

	maximum, err := parseGwei("GAS_MAXIMUM", s.GasMaximum, defaultGasMaximum)
	if err != nil {
		return nil, err
	}

	out := &GasSettings{
		InitialMultiplier:  initial,
		ReactiveMultiplier: reactive,
		Maximum:            maximum,
	}

	if s.OracleSelected() {
		return out, nil
	}

	fixed, err := parseGwei("FIXED_GAS_PRICE", s.FixedGasPrice, "")
	if err != nil {
		return nil, err
	}
	if fixed != nil && fixed.Sign() != 0 {
		if fixed.Cmp(maximum) > 0 {
			return nil, fmt.Errorf("FIXED_GAS_PRICE %s Gwei exceeds GAS_MAXIMUM %s Gwei", strings.TrimSpace(s.FixedGasPrice), gasprice.FormatGwei(maximum))
		}
		out.FixedGasPrice = fixed
	}

	return out, nil
}

// OracleSelected reports whether any feed option is set.
func (s *Settings) OracleSelected() bool {
	return s.EthGasStationAPIKey != "" || s.EtherchainGas || s.POANetworkGas || s.EtherscanGas || s.GasNowGas
}

// OracleSource returns the feed selected by the settings, or nil if there is
// none. When several are set the first in precedence order wins.
func (s *Settings) OracleSource(opts ...gasstation.Option) gasstation.Source {
	switch {
	case s.EthGasStationAPIKey != "":
		return gasstation.NewEthGasStation(s.EthGasStationAPIKey, opts...)
	case s.EtherchainGas:
		return gasstation.NewEtherchain(opts...)
	case s.POANetworkGas:
		return gasstation.NewPOANetwork(s.POANetworkURL, opts...)
	case s.EtherscanGas:
		return gasstation.NewEtherscan(s.EtherscanKey, opts...)
	case s.GasNowGas:
		return gasstation.NewGasNow(s.GasNowAppName, opts...)
	default:
		return nil
	}
}

func parseMultiplier(name, value, def string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = def
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse %s %q: %w", name, value, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s must not be negative, got %s", name, value)
	}

	return d, nil
}

// parseGwei returns nil for an empty value with no default.
func parseGwei(name, value, def string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = def
	}
	if value == "" {
		return nil, nil
	}

	wei, err := gasprice.ParseGwei(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}

	return wei, nil
}

// EpisodeMaxAge parses EPISODE_TTL.
func (s *Settings) EpisodeMaxAge() (time.Duration, error) {
	value := strings.TrimSpace(s.EpisodeTTL)
	if value == "" {
		return defaultEpisodeTTL, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse EPISODE_TTL %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("EPISODE_TTL must be positive, got %s", value)
	}

	return d, nil
}
