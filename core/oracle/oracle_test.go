package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle("EMBR", map[string]float64{"btc": 60000})
	ctx := context.Background()

	p, err := o.Price(ctx, "embr")
	require.NoError(t, err)
	require.Equal(t, NativePrice, p)

	p, err = o.Price(ctx, "BTC")
	require.NoError(t, err)
	require.Equal(t, 60000.0, p)

	_, err = o.Price(ctx, "DOGE")
	require.ErrorIs(t, err, ErrUnknownSymbol)

	require.ErrorIs(t, o.SetPrice("ETH", 0), ErrInvalidPrice)
	require.NoError(t, o.SetPrice("ETH", 2000))
	p, err = o.Price(ctx, "eth")
	require.NoError(t, err)
	require.Equal(t, 2000.0, p)
}

func TestHTTPOracle(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		switch r.URL.Query().Get("ids") {
		case "bitcoin":
			_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000.5}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	o := NewHTTPOracle(srv.URL+"/", NewStaticOracle("EMBR", nil), nil)
	o.Now = func() time.Time { return now }
	ctx := context.Background()

	p, err := o.Price(ctx, "btc")
	require.NoError(t, err)
	require.Equal(t, 65000.5, p)

	// Cached within the TTL.
	_, err = o.Price(ctx, "BTC")
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	now = now.Add(2 * DefaultCacheTTL)
	_, err = o.Price(ctx, "BTC")
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())

	_, err = o.Price(ctx, "ETH")
	require.ErrorIs(t, err, ErrUnknownSymbol)

	p, err = o.Price(ctx, "EMBR")
	require.NoError(t, err)
	require.Equal(t, NativePrice, p)
	require.Equal(t, int32(3), hits.Load())
}

func TestHTTPOracleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, nil, nil)
	_, err := o.Price(context.Background(), "BTC")
	require.ErrorContains(t, err, "429")

	_, err = o.Price(context.Background(), "EMBR")
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestHTTPOracleSharedFetchSurvivesCanceledCaller(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(arrived)
		}
		<-release
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":64000}}`))
	}))
	defer srv.Close()
	defer close(release)

	o := NewHTTPOracle(srv.URL, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.Price(ctx, "BTC")
		firstErr <- err
	}()
	<-arrived

	type result struct {
		price float64
		err   error
	}
	second := make(chan result, 1)
	go func() {
		p, err := o.Price(context.Background(), "BTC")
		second <- result{p, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	release <- struct{}{}

	res := <-second
	require.NoError(t, res.err)
	require.Equal(t, 64000.0, res.price)
	require.Equal(t, int32(1), hits.Load())

	// The quote was cached by the shared fetch.
	p, err := o.Price(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, 64000.0, p)
	require.Equal(t, int32(1), hits.Load())
}
