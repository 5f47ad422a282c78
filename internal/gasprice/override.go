package gasprice

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"
)

// Override is a fixed gas price that operators can change at any time, for
// example to bump a stuck transaction. A nil price means no override.
type Override struct {
	price atomic.Pointer[big.Int]
}

func NewOverride(price *big.Int) *Override {
	o := new(Override)
	o.Update(price)
	return o
}

// Update replaces the held price. The last write wins.
func (o *Override) Update(price *big.Int) {
	if price == nil {
		o.price.Store(nil)
		return
	}
	o.price.Store(new(big.Int).Set(price))
}

// Read returns a copy of the held price, or nil if there is none.
func (o *Override) Read() *big.Int {
	p := o.price.Load()
	if p == nil {
		return nil
	}
	return new(big.Int).Set(p)
}

// GasPrice returns the held price regardless of how long the transaction has
// been waiting.
func (o *Override) GasPrice(_ context.Context, _ time.Duration) (*big.Int, error) {
	p := o.Read()
	if p == nil {
		return nil, ErrNoPrice
	}
	return p, nil
}
