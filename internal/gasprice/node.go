package gasprice

import (
	"context"
	"math/big"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/shopspring/decimal"
)

// Node bids the node's suggested gas price, scaled by a multiplier.
type Node struct {
	client     NodePricer
	multiplier decimal.Decimal
}

func NewNode(client NodePricer, multiplier decimal.Decimal) *Node {
	return &Node{client: client, multiplier: multiplier}
}

func (n *Node) GasPrice(ctx context.Context, _ time.Duration) (*big.Int, error) {
	price, err := queryNode(ctx, n.client)
	if err != nil {
		return nil, err
	}
	return Multiply(price, n.multiplier), nil
}

func queryNode(ctx context.Context, client NodePricer) (*big.Int, error) {
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		metrics.NodeQueryErrorsTotal.Inc()
		return nil, &NodeError{Err: err}
	}
	return price, nil
}
