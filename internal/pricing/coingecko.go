package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.coingecko.com/api/v3"
	DefaultHTTPTimeout = 10 * time.Second

	// nativeCoinID is the CoinGecko id for native SOL.
	nativeCoinID = "solana"

	// sourceCoinGecko labels quotes produced by this client.
	sourceCoinGecko = "coingecko"

	vsCurrency = "usd"
)

// CoinGeckoClient implements Client using the CoinGecko simple price API.
type CoinGeckoClient struct {
	http   *resty.Client
	apiKey string
}

// CoinGeckoOption configures CoinGeckoClient.
type CoinGeckoOption func(*CoinGeckoClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.http.SetBaseURL(url)
	}
}

// WithAPIKey sets the demo API key header on every request.
func WithAPIKey(key string) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.apiKey = key
	}
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(d time.Duration) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.http.SetTimeout(d)
	}
}

// NewCoinGeckoClient creates a new CoinGecko price client.
func NewCoinGeckoClient(opts ...CoinGeckoOption) *CoinGeckoClient {
	c := &CoinGeckoClient{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(DefaultHTTPTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*CoinGeckoClient)(nil)

// Source returns the provenance label attached to quotes.
func (c *CoinGeckoClient) Source() string {
	return sourceCoinGecko
}

// FetchPrice returns the current USD price for an asset key. Native SOL is
// priced via /simple/price; SPL tokens via /simple/token_price/solana keyed
// by contract address.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, assetKey string) (float64, error) {
	var (
		path string
		id   string
	)
	if assetKey == "" {
		path = "/simple/price"
		id = nativeCoinID
	} else {
		path = "/simple/token_price/solana"
		id = assetKey
	}

	var result map[string]map[string]float64

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&result)

	if c.apiKey != "" {
		req.SetHeader("x-cg-demo-api-key", c.apiKey)
	}

	if assetKey == "" {
		req.SetQueryParam("ids", id)
	} else {
		req.SetQueryParam("contract_addresses", id)
	}
	req.SetQueryParam("vs_currencies", vsCurrency)

	resp, err := req.Get(path)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("fetch price: unexpected status %d", resp.StatusCode())
	}

	price, ok := result[id][vsCurrency]
	if !ok || price == 0 {
		return 0, fmt.Errorf("no usd price for asset %q", id)
	}

	return price, nil
}
