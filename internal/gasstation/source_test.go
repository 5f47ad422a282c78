package gasstation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, body string, gotQuery *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSources(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		build func(endpoint string) Source
		want  string
		query map[string]string
	}{
		{
			name:  "EthGasStation",
			body:  `{"fast": 455.0, "fastest": 600.0, "safeLow": 100.0, "average": 200.0}`,
			build: func(e string) Source { return NewEthGasStation("secret", WithEndpoint(e)) },
			want:  "45500000000",
			query: map[string]string{"api-key": "secret"},
		},
		{
			name:  "EtherchainOrg",
			body:  `{"safeLow": "10.0", "standard": "12.0", "fast": "15.5", "fastest": "20"}`,
			build: func(e string) Source { return NewEtherchain(WithEndpoint(e)) },
			want:  "15500000000",
		},
		{
			name:  "POANetwork",
			body:  `{"health": true, "block_number": 1, "slow": 10, "standard": 12, "fast": 21.25, "instant": 30}`,
			build: func(e string) Source { return NewPOANetwork(e) },
			want:  "21250000000",
		},
		{
			name:  "Etherscan",
			body:  `{"status":"1","message":"OK","result":{"LastBlock":"1","SafeGasPrice":"30","ProposeGasPrice":"35","FastGasPrice":"41"}}`,
			build: func(e string) Source { return NewEtherscan("KEY", WithEndpoint(e)) },
			want:  "41000000000",
			query: map[string]string{"apikey": "KEY"},
		},
		{
			name:  "GasNow",
			body:  `{"code":200,"data":{"rapid":50000000000,"fast":42000000000,"standard":30000000000,"slow":20000000000}}`,
			build: func(e string) Source { return NewGasNow("my-keeper", WithEndpoint(e)) },
			want:  "42000000000",
			query: map[string]string{"utm_source": "my-keeper"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var q url.Values
			srv := serve(t, tc.body, &q)

			src := tc.build(srv.URL)
			assert.Equal(t, tc.name, src.Name())

			price, err := src.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, price.String())

			for k, v := range tc.query {
				assert.Equal(t, v, q.Get(k), "query parameter %s", k)
			}
		})
	}
}

func TestOptionalKeysAreOmitted(t *testing.T) {
	var q url.Values
	srv := serve(t, `{"status":"1","message":"OK","result":{"FastGasPrice":"41"}}`, &q)

	_, err := NewEtherscan("", WithEndpoint(srv.URL)).Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, q.Has("apikey"))
}

func TestSourceFailures(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		build func(endpoint string) Source
	}{
		{"etherscan error status", `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, func(e string) Source { return NewEtherscan("x", WithEndpoint(e)) }},
		{"gasnow bad code", `{"code":500,"data":{}}`, func(e string) Source { return NewGasNow("", WithEndpoint(e)) }},
		{"poa unhealthy", `{"health": false, "fast": 21}`, func(e string) Source { return NewPOANetwork(e) }},
		{"missing fast", `{"average": 20}`, func(e string) Source { return NewEtherchain(WithEndpoint(e)) }},
		{"negative", `{"fast": -3}`, func(e string) Source { return NewEthGasStation("k", WithEndpoint(e)) }},
		{"not json", `<html>`, func(e string) Source { return NewEtherchain(WithEndpoint(e)) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, tc.body, nil)
			_, err := tc.build(srv.URL).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSourceHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewEtherchain(WithEndpoint(srv.URL)).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
