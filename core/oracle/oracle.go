package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// NativePrice is the fixed USD price quoted for the native token.
const NativePrice = 10.0

var (
	ErrUnknownSymbol = errors.New("no price for symbol")
	ErrInvalidPrice  = errors.New("price must be positive")
)

// PriceOracle quotes USD prices by ticker symbol. Quotes are read-only and
// never feed back into consensus.
type PriceOracle interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// StaticOracle serves a fixed price table that can be updated in place.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticOracle quotes nativeSymbol at NativePrice plus any extra prices.
func NewStaticOracle(nativeSymbol string, extra map[string]float64) *StaticOracle {
	prices := map[string]float64{strings.ToUpper(nativeSymbol): NativePrice}
	for sym, p := range extra {
		prices[strings.ToUpper(sym)] = p
	}
	return &StaticOracle{prices: prices}
}

func (o *StaticOracle) Price(_ context.Context, symbol string) (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return p, nil
}

func (o *StaticOracle) SetPrice(symbol string, price float64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	o.prices[strings.ToUpper(symbol)] = price
	o.mu.Unlock()
	return nil
}
