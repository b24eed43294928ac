package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://api.coingecko.com/api/v3"
	DefaultCacheTTL = time.Minute
)

// DefaultCoinIDs maps ticker symbols to price feed coin IDs.
var DefaultCoinIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

type quote struct {
	price float64
	at    time.Time
}

// HTTPOracle fetches prices from a CoinGecko-compatible simple price
// endpoint. Symbols without a coin ID are delegated to Fallback.
// Concurrent requests for one symbol share a single fetch, and quotes are
// cached for CacheTTL.
type HTTPOracle struct {
	BaseURL  string
	CoinIDs  map[string]string
	Fallback PriceOracle
	Client   *http.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]quote
}

func NewHTTPOracle(baseURL string, fallback PriceOracle, log *zap.Logger) *HTTPOracle {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPOracle{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		CoinIDs:  DefaultCoinIDs,
		Fallback: fallback,
		Client:   &http.Client{Timeout: 10 * time.Second},
		CacheTTL: DefaultCacheTTL,
		Logger:   log.Named("oracle"),
		Now:      time.Now,
		cache:    make(map[string]quote),
	}
}

func (o *HTTPOracle) Price(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	id, ok := o.CoinIDs[symbol]
	if !ok {
		if o.Fallback == nil {
			return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		return o.Fallback.Price(ctx, symbol)
	}

	o.mu.Lock()
	q, hit := o.cache[symbol]
	o.mu.Unlock()
	if hit && o.Now().Sub(q.at) < o.CacheTTL {
		return q.price, nil
	}

	// The shared fetch outlives any one caller's context; Client.Timeout
	// bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := o.group.DoChan(symbol, func() (interface{}, error) {
		price, err := o.fetch(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.cache[symbol] = quote{price: price, at: o.Now()}
		o.mu.Unlock()
		return price, nil
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			o.Logger.Warn("price fetch failed", zap.String("symbol", symbol), zap.Error(res.Err))
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

func (o *HTTPOracle) fetch(ctx context.Context, id string) (float64, error) {
	q := url.Values{"ids": {id}, "vs_currencies": {"usd"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned %s", resp.Status)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price feed: %w", err)
	}
	price, ok := body[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, id)
	}
	if price <= 0 {
		return 0, errors.Join(ErrInvalidPrice, fmt.Errorf("feed quoted %v for %s", price, id))
	}
	return price, nil
}
