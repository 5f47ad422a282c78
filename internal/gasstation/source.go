// Package gasstation polls remote gas price feeds for their "fast" price.
package gasstation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/shopspring/decimal"
)

// Source fetches a feed's current fast gas price, in wei, with a single
// request.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*big.Int, error)
}

const (
	ethGasStationURL = "https://ethgasstation.info/json/ethgasAPI.json"
	etherchainURL    = "https://www.etherchain.org/api/gasPriceOracle"
	poaNetworkURL    = "https://gasprice.poa.network"
	etherscanURL     = "https://api.etherscan.io/api?module=gastracker&action=gasoracle"
	gasNowURL        = "https://www.gasnow.org/api/v3/gas/price"

	requestTimeout = 15 * time.Second
)

var errNoFastPrice = errors.New("no fast price in response")

type httpSource struct {
	name     string
	endpoint string
	client   *http.Client
	parse    func(body []byte) (*big.Int, error)
}

// Option adjusts how a Source talks to its feed.
type Option func(*httpSource)

// WithEndpoint replaces the feed's default URL. Query parameters the source
// adds itself, such as API keys, are kept.
func WithEndpoint(endpoint string) Option {
	return func(s *httpSource) {
		s.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *httpSource) {
		s.client = client
	}
}

func newSource(name, endpoint string, parse func([]byte) (*big.Int, error), opts []Option) *httpSource {
	s := &httpSource{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		parse:    parse,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *httpSource) Name() string {
	return s.name
}

func (s *httpSource) Fetch(ctx context.Context) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to construct request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed making request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d from request", res.StatusCode)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	price, err := s.parse(b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", s.name, err)
	}

	return price, nil
}

// withQuery returns endpoint with key=value added to its query string. Empty
// values are skipped.
func withQuery(endpoint, key, value string) string {
	if value == "" {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// EthGasStation reports prices in tenths of a Gwei.
type ethGasStationRes struct {
	Fast *decimal.Decimal `json:"fast"`
}

func NewEthGasStation(apiKey string, opts ...Option) Source {
	s := newSource("EthGasStation", ethGasStationURL, parseEthGasStation, opts)
	s.endpoint = withQuery(s.endpoint, "api-key", apiKey)
	return s
}

func parseEthGasStation(b []byte) (*big.Int, error) {
	var res ethGasStationRes
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	if res.Fast == nil {
		return nil, errNoFastPrice
	}
	return gasprice.GweiToWei(res.Fast.Div(decimal.NewFromInt(10)))
}

type etherchainRes struct {
	Fast *decimal.Decimal `json:"fast"`
}

func NewEtherchain(opts ...Option) Source {
	return newSource("EtherchainOrg", etherchainURL, parseEtherchain, opts)
}

func parseEtherchain(b []byte) (*big.Int, error) {
	var res etherchainRes
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	if res.Fast == nil {
		return nil, errNoFastPrice
	}
	return gasprice.GweiToWei(*res.Fast)
}

type poaNetworkRes struct {
	Health *bool            `json:"health"`
	Fast   *decimal.Decimal `json:"fast"`
}

// NewPOANetwork builds the POA Network feed. A non-empty altURL replaces the
// public endpoint.
func NewPOANetwork(altURL string, opts ...Option) Source {
	s := newSource("POANetwork", poaNetworkURL, parsePOANetwork, opts)
	if altURL != "" {
		s.endpoint = altURL
	}
	return s
}

func parsePOANetwork(b []byte) (*big.Int, error) {
	var res poaNetworkRes
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	if res.Health != nil && !*res.Health {
		return nil, errors.New("feed reports itself unhealthy")
	}
	if res.Fast == nil {
		return nil, errNoFastPrice
	}
	return gasprice.GweiToWei(*res.Fast)
}

type etherscanRes struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanOracle struct {
	FastGasPrice *decimal.Decimal `json:"FastGasPrice"`
}

// NewEtherscan builds the Etherscan gas tracker feed. The API key is optional;
// without one Etherscan applies a stricter rate limit.
func NewEtherscan(apiKey string, opts ...Option) Source {
	s := newSource("Etherscan", etherscanURL, parseEtherscan, opts)
	s.endpoint = withQuery(s.endpoint, "apikey", apiKey)
	return s
}

func parseEtherscan(b []byte) (*big.Int, error) {
	var res etherscanRes
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	if res.Status != "1" {
		// On failure the result is a plain string explaining why.
		return nil, fmt.Errorf("status %q: %s %s", res.Status, res.Message, string(res.Result))
	}

	var oracle etherscanOracle
	if err := json.Unmarshal(res.Result, &oracle); err != nil {
		return nil, err
	}
	if oracle.FastGasPrice == nil {
		return nil, errNoFastPrice
	}
	return gasprice.GweiToWei(*oracle.FastGasPrice)
}

// GasNow reports prices in wei.
type gasNowRes struct {
	Code int `json:"code"`
	Data struct {
		Fast *decimal.Decimal `json:"fast"`
	} `json:"data"`
}

// NewGasNow builds the GasNow feed. appName, when set, identifies the caller
// to GasNow.
func NewGasNow(appName string, opts ...Option) Source {
	s := newSource("GasNow", gasNowURL, parseGasNow, opts)
	s.endpoint = withQuery(s.endpoint, "utm_source", appName)
	return s
}

func parseGasNow(b []byte) (*big.Int, error) {
	var res gasNowRes
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	if res.Code != http.StatusOK {
		return nil, fmt.Errorf("response code %d", res.Code)
	}
	if res.Data.Fast == nil {
		return nil, errNoFastPrice
	}
	if res.Data.Fast.IsNegative() {
		return nil, fmt.Errorf("negative price %s", res.Data.Fast)
	}
	return res.Data.Fast.Round(0).BigInt(), nil
}
