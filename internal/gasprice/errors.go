package gasprice

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrice is returned by a fixed strategy that has no price set.
	ErrNoPrice = errors.New("no gas price set")

	// ErrNodeQuery matches every *NodeError under errors.Is.
	ErrNodeQuery = errors.New("node gas price query failed")
)

// ConfigError reports a strategy setting that breaks one of its constraints.
// It is only ever returned at construction time.
type ConfigError struct {
	Field string
	Value string
	// Limit is the bound that Value violated, if there is one.
	Limit  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Limit == "" {
		return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s %s", e.Field, e.Value, e.Reason, e.Limit)
}

// NodeError wraps a failed gas price query against the node. There is no
// source below the node, so callers get this back instead of a price.
type NodeError struct {
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("failed to query node gas price: %v", e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return target == ErrNodeQuery
}
