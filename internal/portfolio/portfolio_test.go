package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	holdings *models.Holdings
	err      error
	fetches  int
}

func (f *fakeSource) FetchHoldings(ctx context.Context) (*models.Holdings, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	// Return a copy so the tracker owns its snapshot.
	copied := &models.Holdings{
		FiatBalance: f.holdings.FiatBalance,
		Assets:      map[string]decimal.Decimal{},
		FetchedAt:   time.Now().UTC(),
	}
	for symbol, units := range f.holdings.Assets {
		copied.Assets[symbol] = units
	}
	return copied, nil
}

func newTestSource() *fakeSource {
	return &fakeSource{holdings: &models.Holdings{
		FiatBalance: decimal.RequireFromString("1000"),
		Assets: map[string]decimal.Decimal{
			"BTC": decimal.RequireFromString("0.5"),
		},
	}}
}

func TestViewBeforeRefreshIsEmpty(t *testing.T) {
	tracker := NewTracker(newTestSource())

	view := tracker.View()
	if !view.FiatBalance.IsZero() {
		t.Errorf("fiat = %s, want 0 before any fetch", view.FiatBalance.String())
	}
	if !tracker.LastFetched().IsZero() {
		t.Error("LastFetched should be zero before any fetch")
	}
}

func TestOptimisticOverlayAppliedToView(t *testing.T) {
	source := newTestSource()
	tracker := NewTracker(source)
	ctx := context.Background()

	if err := tracker.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	tracker.ApplyOptimistic(Delta{
		Fiat: decimal.RequireFromString("-101.5"),
		Assets: map[string]decimal.Decimal{
			"BTC": decimal.RequireFromString("0.002"),
		},
	})

	view := tracker.View()
	if !view.FiatBalance.Equal(decimal.RequireFromString("898.5")) {
		t.Errorf("fiat = %s, want 898.5", view.FiatBalance.String())
	}
	if !view.Assets["BTC"].Equal(decimal.RequireFromString("0.502")) {
		t.Errorf("BTC = %s, want 0.502", view.Assets["BTC"].String())
	}
}

func TestReconcileDiscardsOverlayAndRefetches(t *testing.T) {
	source := newTestSource()
	tracker := NewTracker(source)
	ctx := context.Background()

	if err := tracker.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	tracker.ApplyOptimistic(Delta{Fiat: decimal.RequireFromString("-500")})

	// The backend settled at a different number than the local guess.
	source.holdings.FiatBalance = decimal.RequireFromString("480")

	if err := tracker.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	view := tracker.View()
	if !view.FiatBalance.Equal(decimal.RequireFromString("480")) {
		t.Errorf("fiat = %s, want the refetched 480, not a locally computed value", view.FiatBalance.String())
	}
	if source.fetches != 2 {
		t.Errorf("fetches = %d, want 2", source.fetches)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	source := newTestSource()
	tracker := NewTracker(source)
	ctx := context.Background()

	if err := tracker.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	source.err = errors.New("backend down")
	if err := tracker.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error")
	}

	view := tracker.View()
	if !view.FiatBalance.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("fiat = %s, want last confirmed 1000", view.FiatBalance.String())
	}
}

func TestViewReturnsCopy(t *testing.T) {
	tracker := NewTracker(newTestSource())
	ctx := context.Background()

	if err := tracker.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	view := tracker.View()
	view.Assets["BTC"] = decimal.RequireFromString("999")

	if tracker.View().Assets["BTC"].Equal(decimal.RequireFromString("999")) {
		t.Error("mutating a view leaked into the tracker snapshot")
	}
}
