package gasprice

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

func gweiOf(s string) *big.Int {
	wei, err := ParseGwei(s)
	if err != nil {
		panic(err)
	}
	return wei
}

type DynamicTestSuite struct {
	suite.Suite

	ctx    context.Context
	ctrl   *gomock.Controller
	node   *mocks.MockNodePricer
	oracle *mocks.MockOracle
	cfg    DynamicConfig
}

func TestDynamicTestSuite(t *testing.T) {
	suite.Run(t, new(DynamicTestSuite))
}

func (s *DynamicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.node = mocks.NewMockNodePricer(s.ctrl)
	s.oracle = mocks.NewMockOracle(s.ctrl)
	s.cfg = DynamicConfig{
		InitialMultiplier:  decimal.RequireFromString("1.5"),
		ReactiveMultiplier: decimal.RequireFromString("1.125"),
		Step:               time.Minute,
		Maximum:            big.NewInt(1_000_000),
	}
}

func (s *DynamicTestSuite) TestOracleReadingMultipliesNodePrice() {
	// The oracle's own number is deliberately far from the node's.
	s.oracle.EXPECT().FastPrice().Return(big.NewInt(999_999), true).AnyTimes()
	s.oracle.EXPECT().Name().Return("TestFeed").AnyTimes()
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1000), nil).AnyTimes()

	d, err := NewDynamic(s.cfg, s.node, s.oracle, NewOverride(nil), nil)
	s.Require().NoError(err)

	got, err := d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(1500), got.Int64())

	got, err = d.GasPrice(s.ctx, time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(1688), got.Int64()) // 1500 * 1.125 = 1687.5
}

func (s *DynamicTestSuite) TestOracleReadingBeatsOverride() {
	s.oracle.EXPECT().FastPrice().Return(big.NewInt(5), true)
	s.oracle.EXPECT().Name().Return("TestFeed").AnyTimes()
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1000), nil)

	d, err := NewDynamic(s.cfg, s.node, s.oracle, NewOverride(big.NewInt(777)), nil)
	s.Require().NoError(err)

	got, err := d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(1500), got.Int64())
}

func (s *DynamicTestSuite) TestNoOracleReadingFallsBackToOverride() {
	s.oracle.EXPECT().FastPrice().Return(nil, false)

	d, err := NewDynamic(s.cfg, s.node, s.oracle, NewOverride(big.NewInt(777)), nil)
	s.Require().NoError(err)

	got, err := d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(777), got.Int64())
}

func (s *DynamicTestSuite) TestOverrideWithoutOracle() {
	d, err := NewDynamic(s.cfg, s.node, nil, NewOverride(big.NewInt(1000)), nil)
	s.Require().NoError(err)

	for elapsed, want := range map[time.Duration]int64{
		0:                1000,
		59 * time.Second: 1000,
		60 * time.Second: 1125,
		2 * time.Minute:  1266,
	} {
		got, err := d.GasPrice(s.ctx, elapsed)
		s.Require().NoError(err)
		s.Equal(want, got.Int64(), "elapsed %s", elapsed)
	}
}

func (s *DynamicTestSuite) TestOverrideChangesAreSeenImmediately() {
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(300), nil).Times(2)

	d, err := NewDynamic(s.cfg, s.node, nil, nil, nil)
	s.Require().NoError(err)

	got, err := d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(300), got.Int64())

	// Operators may set a price above the ceiling; it is still clamped.
	d.Override().Update(big.NewInt(5_000_000))
	got, err = d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(1_000_000), got.Int64())

	d.Override().Update(nil)
	got, err = d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(300), got.Int64())
}

func (s *DynamicTestSuite) TestRawNodePriceWithoutMultiplier() {
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1000), nil)

	d, err := NewDynamic(s.cfg, s.node, nil, NewOverride(nil), nil)
	s.Require().NoError(err)

	got, err := d.GasPrice(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(1000), got.Int64())
}

func (s *DynamicTestSuite) TestNeverAboveCeiling() {
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(900_000), nil).AnyTimes()

	d, err := NewDynamic(s.cfg, s.node, nil, nil, nil)
	s.Require().NoError(err)

	for _, elapsed := range []time.Duration{0, time.Minute, time.Hour, 1000 * time.Hour} {
		got, err := d.GasPrice(s.ctx, elapsed)
		s.Require().NoError(err)
		s.LessOrEqual(got.Cmp(s.cfg.Maximum), 0, "elapsed %s", elapsed)
	}
}

func (s *DynamicTestSuite) TestNodeFailureIsReturned() {
	cause := errors.New("dial tcp: i/o timeout")
	s.oracle.EXPECT().FastPrice().Return(big.NewInt(10), true)
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(nil, cause)

	d, err := NewDynamic(s.cfg, s.node, s.oracle, nil, nil)
	s.Require().NoError(err)

	_, err = d.GasPrice(s.ctx, time.Minute)
	s.Require().Error(err)
	s.ErrorIs(err, ErrNodeQuery)
	s.ErrorIs(err, cause)
}

func (s *DynamicTestSuite) TestNodeFailureWithoutOracle() {
	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(nil, errors.New("no route"))

	d, err := NewDynamic(s.cfg, s.node, nil, nil, nil)
	s.Require().NoError(err)

	_, err = d.GasPrice(s.ctx, 0)
	var nodeErr *NodeError
	s.ErrorAs(err, &nodeErr)
}

func (s *DynamicTestSuite) TestFixedAboveMaximumFailsConstruction() {
	_, err := NewDynamic(s.cfg, s.node, nil, NewOverride(big.NewInt(1_000_001)), nil)
	s.Require().Error(err)

	var cfgErr *ConfigError
	s.Require().ErrorAs(err, &cfgErr)
	s.Equal("fixed gas price", cfgErr.Field)
	s.Equal("1000001", cfgErr.Value)
	s.Equal("1000000", cfgErr.Limit)
	s.Equal("invalid fixed gas price 1000001: must not exceed maximum 1000000", err.Error())

	// Equal to the maximum is fine.
	_, err = NewDynamic(s.cfg, s.node, nil, NewOverride(big.NewInt(1_000_000)), nil)
	s.NoError(err)
}

func (s *DynamicTestSuite) TestInvalidConfig() {
	bad := []func(c *DynamicConfig){
		func(c *DynamicConfig) { c.InitialMultiplier = decimal.NewFromInt(-1) },
		func(c *DynamicConfig) { c.ReactiveMultiplier = decimal.RequireFromString("-0.5") },
		func(c *DynamicConfig) { c.Step = 0 },
		func(c *DynamicConfig) { c.Maximum = nil },
		func(c *DynamicConfig) { c.Maximum = big.NewInt(-1) },
	}

	for i, mutate := range bad {
		cfg := s.cfg
		mutate(&cfg)

		_, err := NewDynamic(cfg, s.node, nil, nil, nil)
		var cfgErr *ConfigError
		s.ErrorAs(err, &cfgErr, "case %d", i)
	}
}

func (s *DynamicTestSuite) TestDescribe() {
	cfg := DynamicConfig{
		InitialMultiplier:  decimal.RequireFromString("1.5"),
		ReactiveMultiplier: decimal.RequireFromString("1.125"),
		Step:               42 * time.Second,
		Maximum:            gweiOf("5000"),
	}

	s.oracle.EXPECT().Name().Return("Etherscan").AnyTimes()
	d, err := NewDynamic(cfg, s.node, s.oracle, nil, nil)
	s.Require().NoError(err)
	s.Equal("Etherscan fast gas price with initial multiplier 1.5 and will multiply by 1.125 every 42s to a maximum of 5000.0 Gwei", d.Describe(s.ctx))

	d, err = NewDynamic(cfg, s.node, nil, NewOverride(gweiOf("12.3")), nil)
	s.Require().NoError(err)
	s.Equal("Fixed gas price 12.3 Gwei and will multiply by 1.125 every 42s to a maximum of 5000.0 Gwei", d.Describe(s.ctx))

	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(gweiOf("25"), nil)
	d, err = NewDynamic(cfg, s.node, nil, nil, nil)
	s.Require().NoError(err)
	s.Equal("Node gas price (currently 25.0 Gwei, changes over time) with initial multiplier 1.5 and will multiply by 1.125 every 42s to a maximum of 5000.0 Gwei", d.Describe(s.ctx))

	s.node.EXPECT().SuggestGasPrice(gomock.Any()).Return(nil, errors.New("down"))
	s.Contains(d.Describe(s.ctx), "currently unknown")
}
