package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source is the external portfolio data provider. This core never computes
// authoritative balances; it only fetches them.
type Source interface {
	FetchHoldings(ctx context.Context) (*models.Holdings, error)
}

// Delta is a locally assumed balance change: what a just-submitted operation
// is expected to do to the snapshot once the backend confirms it.
type Delta struct {
	Fiat   decimal.Decimal
	Assets map[string]decimal.Decimal
}

// Tracker holds the last confirmed holdings snapshot plus at most one
// optimistic overlay. The overlay is applied on submission and discarded,
// with a refetch, on both the confirmation and the failure path. The
// corrected value is never computed locally.
type Tracker struct {
	mu        sync.Mutex
	source    Source
	confirmed *models.Holdings
	overlay   *Delta
}

func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// Refresh fetches a fresh snapshot and drops any overlay.
func (t *Tracker) Refresh(ctx context.Context) error {
	holdings, err := t.source.FetchHoldings(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch holdings: %w", err)
	}

	t.mu.Lock()
	t.confirmed = holdings
	t.overlay = nil
	t.mu.Unlock()

	zap.L().Debug("Holdings snapshot refreshed",
		zap.String("fiat_balance", holdings.FiatBalance.String()),
		zap.Int("assets", len(holdings.Assets)))

	return nil
}

// ApplyOptimistic installs the overlay for a just-submitted operation,
// replacing any previous one.
func (t *Tracker) ApplyOptimistic(delta Delta) {
	t.mu.Lock()
	t.overlay = &delta
	t.mu.Unlock()
}

// Reconcile discards the overlay and refetches; the backend's post-operation
// response is ground truth for both outcomes.
func (t *Tracker) Reconcile(ctx context.Context) error {
	t.mu.Lock()
	t.overlay = nil
	t.mu.Unlock()

	return t.Refresh(ctx)
}

// View returns the snapshot with the overlay applied, as the UI should see
// it. The returned value is a copy.
func (t *Tracker) View() *models.Holdings {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.confirmed == nil {
		return &models.Holdings{Assets: map[string]decimal.Decimal{}}
	}

	view := &models.Holdings{
		FiatBalance: t.confirmed.FiatBalance,
		Assets:      make(map[string]decimal.Decimal, len(t.confirmed.Assets)),
		FetchedAt:   t.confirmed.FetchedAt,
	}
	for symbol, units := range t.confirmed.Assets {
		view.Assets[symbol] = units
	}

	if t.overlay != nil {
		view.FiatBalance = view.FiatBalance.Add(t.overlay.Fiat)
		for symbol, delta := range t.overlay.Assets {
			view.Assets[symbol] = view.Assets[symbol].Add(delta)
		}
	}

	return view
}

// LastFetched reports when the confirmed snapshot was taken, zero time when
// nothing has been fetched yet.
func (t *Tracker) LastFetched() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.confirmed == nil {
		return time.Time{}
	}
	return t.confirmed.FetchedAt
}
