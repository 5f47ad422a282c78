package gasprice

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

var gwei = decimal.NewFromInt(params.GWei)

// GweiToWei converts a Gwei amount to wei, rounding half up.
func GweiToWei(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %s Gwei", d)
	}
	return d.Shift(9).Round(0).BigInt(), nil
}

// ParseGwei parses a decimal Gwei string such as "12.5" into wei.
func ParseGwei(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Gwei amount %q: %w", s, err)
	}
	return GweiToWei(d)
}

// FormatGwei renders a wei amount in Gwei with one decimal place.
func FormatGwei(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, 0).Div(gwei).StringFixed(1)
}
