// Package gasprice decides what gas price a transaction should bid after it
// has been pending for some time.
package gasprice

import (
	"context"
	"math/big"
	"time"
)

// Strategy produces a gas price, in wei, for a transaction that has been
// waiting for elapsed.
type Strategy interface {
	GasPrice(ctx context.Context, elapsed time.Duration) (*big.Int, error)
}

// StrategyFunc adapts an ordinary function to the Strategy interface.
type StrategyFunc func(ctx context.Context, elapsed time.Duration) (*big.Int, error)

func (f StrategyFunc) GasPrice(ctx context.Context, elapsed time.Duration) (*big.Int, error) {
	return f(ctx, elapsed)
}

//go:generate mockgen -source strategy.go -destination ../mocks/gasprice.go -package mocks

// Oracle is a remote fee feed. FastPrice must only read whatever the feed has
// cached; it must not go to the network. A missing or stale reading is
// reported as false, never as an error.
type Oracle interface {
	Name() string
	FastPrice() (*big.Int, bool)
}

// NodePricer is satisfied by *ethclient.Client.
type NodePricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}
