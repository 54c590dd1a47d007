package pricefeed

import (
	"context"
	"sync"
	"time"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/models"

	"go.uber.org/zap"
)

// Feed keeps a cache of price quotes fresh while a relevant view is open.
// It satisfies the converter's quote source.
type Feed struct {
	prices  backend.Service
	symbols []string

	mu     sync.RWMutex
	quotes map[string]models.PriceQuote

	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	started  bool
}

func NewFeed(prices backend.Service, symbols []string, interval time.Duration) *Feed {
	return &Feed{
		prices:   prices,
		symbols:  symbols,
		quotes:   make(map[string]models.PriceQuote),
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins periodic quote refresh. The first refresh happens immediately
// so the converter has quotes as soon as possible.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	go f.pollLoop(ctx)

	zap.L().Info("Price feed started",
		zap.Strings("symbols", f.symbols),
		zap.Duration("interval", f.interval))
}

// Stop halts the refresh loop. Safe to call once after Start.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return
	}
	f.started = false
	f.mu.Unlock()

	close(f.stopChan)
	<-f.doneChan
	zap.L().Info("Price feed stopped")
}

func (f *Feed) pollLoop(ctx context.Context) {
	defer close(f.doneChan)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			f.refresh(ctx)
		case <-f.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (f *Feed) refresh(ctx context.Context) {
	entries, err := f.prices.GetPrices(ctx, f.symbols)
	if err != nil {
		// Keep serving the last quotes; staleness is advisory at this layer.
		zap.L().Warn("Quote refresh failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()

	f.mu.Lock()
	for _, entry := range entries {
		f.quotes[entry.Symbol] = models.PriceQuote{
			AssetSymbol:     entry.Symbol,
			UnitPriceInBase: entry.Price,
			AsOf:            now,
		}
	}
	f.mu.Unlock()
}

// Quote returns the latest quote for a symbol.
func (f *Feed) Quote(symbol string) (models.PriceQuote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	quote, ok := f.quotes[symbol]
	return quote, ok
}
