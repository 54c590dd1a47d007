package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrBelowMinimum is returned by Create when the fiat amount is under the
// configured deposit minimum. No backend call is made.
var ErrBelowMinimum = errors.New("amount is below the deposit minimum")

// Events are the caller's hooks into a watched session. All callbacks are
// invoked from the watcher goroutine and must not block.
type Events struct {
	// OnStatus fires on every observed status change, terminal or not.
	OnStatus func(session *models.PaymentSession)
	// OnCompleted fires once when the payment is confirmed.
	OnCompleted func(session *models.PaymentSession)
	// OnFailed fires once on FAILED or EXPIRED.
	OnFailed func(session *models.PaymentSession)
	// OnTick fires every countdown tick with the time remaining until the
	// session expires. Purely informational: reaching zero never stops the
	// status poller, only a polled terminal status does.
	OnTick func(sessionId string, remaining time.Duration)
}

// Manager creates deposit payment sessions and watches them until a terminal
// status. At most one watcher runs per session; attaching again replaces the
// previous watcher instead of stacking a second poller.
type Manager struct {
	backend       backend.Service
	sessions      store.SessionStore
	events        Events
	minDeposit    decimal.Decimal
	currency      string
	pollInterval  time.Duration
	countdownTick time.Duration

	mu       sync.Mutex
	watchers map[string]*watcher
}

type watcher struct {
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}

func NewManager(
	backendService backend.Service,
	sessions store.SessionStore,
	events Events,
	minDeposit decimal.Decimal,
	currency string,
	pollInterval time.Duration,
	countdownTick time.Duration,
) *Manager {
	return &Manager{
		backend:       backendService,
		sessions:      sessions,
		events:        events,
		minDeposit:    minDeposit,
		currency:      currency,
		pollInterval:  pollInterval,
		countdownTick: countdownTick,
		watchers:      make(map[string]*watcher),
	}
}

// Create asks the backend for a new payment session and persists it. The
// returned session starts in PENDING with a payment address and expiry. A
// backend failure here is retryable; nothing is persisted in that case.
func (m *Manager) Create(ctx context.Context, assetSymbol string, fiatAmount decimal.Decimal) (*models.PaymentSession, error) {
	if fiatAmount.LessThan(m.minDeposit) {
		return nil, fmt.Errorf("minimum deposit is %s %s: %w", m.minDeposit.String(), m.currency, ErrBelowMinimum)
	}

	session, err := m.backend.CreateDepositPayment(ctx, backend.DepositParams{
		Amount:      fiatAmount,
		Currency:    m.currency,
		AssetSymbol: assetSymbol,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create deposit payment: %w", err)
	}

	if err := m.sessions.SaveSession(ctx, session); err != nil {
		zap.L().Warn("Failed to persist payment session",
			zap.String("session_id", session.SessionId),
			zap.Error(err))
	}

	zap.L().Info("Deposit payment session created",
		zap.String("session_id", session.SessionId),
		zap.String("asset", session.AssetSymbol),
		zap.String("amount", session.FiatAmount.String()),
		zap.Time("expires_at", session.ExpiresAt))

	return session, nil
}

// Attach starts watching a session: a countdown ticker for display and a
// status poll loop against the backend. If a watcher for this session already
// runs it is stopped first, so re-opening a session view never doubles the
// polling.
func (m *Manager) Attach(ctx context.Context, session *models.PaymentSession) {
	if session.Status.Terminal() {
		return
	}

	m.mu.Lock()
	if existing, ok := m.watchers[session.SessionId]; ok {
		m.mu.Unlock()
		existing.stop()
		m.mu.Lock()
	}

	w := &watcher{
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	m.watchers[session.SessionId] = w
	m.mu.Unlock()

	go m.watchLoop(ctx, *session, w)
}

// Detach stops the watcher for a session without cancelling the payment. The
// session stays open in the store and can be re-attached later.
func (m *Manager) Detach(sessionId string) {
	m.mu.Lock()
	w, ok := m.watchers[sessionId]
	if ok {
		delete(m.watchers, sessionId)
	}
	m.mu.Unlock()

	if ok {
		w.stop()
	}
}

// Cancel abandons a non-terminal session: it tells the backend, stops any
// watcher, and removes the session from the store.
func (m *Manager) Cancel(ctx context.Context, sessionId string) error {
	session, err := m.sessions.GetSession(ctx, sessionId)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return fmt.Errorf("session %s already reached %s", sessionId, session.Status)
	}

	if err := m.backend.CancelDeposit(ctx, sessionId); err != nil {
		return fmt.Errorf("unable to cancel deposit: %w", err)
	}

	m.Detach(sessionId)

	if err := m.sessions.DeleteSession(ctx, sessionId); err != nil {
		zap.L().Warn("Failed to delete cancelled session",
			zap.String("session_id", sessionId),
			zap.Error(err))
	}

	zap.L().Info("Deposit payment cancelled", zap.String("session_id", sessionId))
	return nil
}

// Resume re-attaches a watcher to every open session in the store; called on
// startup so sessions survive a restart.
func (m *Manager) Resume(ctx context.Context) error {
	sessions, err := m.sessions.ListOpenSessions(ctx)
	if err != nil {
		return fmt.Errorf("unable to list open sessions: %w", err)
	}

	for i := range sessions {
		m.Attach(ctx, &sessions[i])
	}

	if len(sessions) > 0 {
		zap.L().Info("Resumed payment session watchers", zap.Int("count", len(sessions)))
	}
	return nil
}

// watchLoop polls the backend for the session status and emits countdown
// ticks. It polls once immediately, then on every poll interval, and exits on
// the first terminal status, on Detach, or when the context ends.
func (m *Manager) watchLoop(ctx context.Context, session models.PaymentSession, w *watcher) {
	defer close(w.doneChan)

	pollTicker := time.NewTicker(m.pollInterval)
	defer pollTicker.Stop()
	countdownTicker := time.NewTicker(m.countdownTick)
	defer countdownTicker.Stop()

	zap.L().Debug("Watching payment session",
		zap.String("session_id", session.SessionId),
		zap.Duration("poll_interval", m.pollInterval))

	if terminal := m.poll(ctx, &session); terminal {
		m.forget(session.SessionId, w)
		return
	}

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-countdownTicker.C:
			m.tick(&session)
		case <-pollTicker.C:
			if terminal := m.poll(ctx, &session); terminal {
				m.forget(session.SessionId, w)
				return
			}
		}
	}
}

// tick emits the remaining time, clamped at zero once the expiry passes. The
// countdown reaching zero is display-only; the poller keeps running until the
// backend reports a terminal status.
func (m *Manager) tick(session *models.PaymentSession) {
	if m.events.OnTick == nil {
		return
	}

	remaining := time.Until(session.ExpiresAt)
	if remaining < 0 {
		remaining = 0
	}
	m.events.OnTick(session.SessionId, remaining)
}

// poll fetches the current status once. Returns true when the session reached
// a terminal status.
func (m *Manager) poll(ctx context.Context, session *models.PaymentSession) bool {
	status, err := m.backend.GetDepositStatus(ctx, session.SessionId)
	if err != nil {
		// Transient; keep the last known status and try again next tick.
		zap.L().Warn("Deposit status poll failed",
			zap.String("session_id", session.SessionId),
			zap.Error(err))
		return false
	}

	if status == session.Status {
		return status.Terminal()
	}

	session.Status = status
	if err := m.sessions.UpdateSessionStatus(ctx, session.SessionId, status); err != nil {
		zap.L().Warn("Failed to persist session status",
			zap.String("session_id", session.SessionId),
			zap.Error(err))
	}

	zap.L().Info("Payment session status changed",
		zap.String("session_id", session.SessionId),
		zap.String("status", string(status)))

	if m.events.OnStatus != nil {
		m.events.OnStatus(session)
	}

	switch status {
	case models.PaymentCompleted:
		if m.events.OnCompleted != nil {
			m.events.OnCompleted(session)
		}
	case models.PaymentFailed, models.PaymentExpired:
		if m.events.OnFailed != nil {
			m.events.OnFailed(session)
		}
	}

	return status.Terminal()
}

// forget removes a finished watcher from the registry, unless it was already
// replaced by a newer attach.
func (m *Manager) forget(sessionId string, w *watcher) {
	m.mu.Lock()
	if current, ok := m.watchers[sessionId]; ok && current == w {
		delete(m.watchers, sessionId)
	}
	m.mu.Unlock()
}
