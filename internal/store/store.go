package store

import (
	"context"
	"errors"

	"trading-core-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateReceipt = errors.New("duplicate receipt")
	ErrSessionNotFound  = errors.New("payment session not found")
)

// ReceiptJournal records the outcome of executed operations. It is an audit
// trail, never a balance authority: the backend owns settlement and the
// portfolio source owns balances.
type ReceiptJournal interface {
	RecordReceipt(ctx context.Context, receipt *models.Receipt) error
	GetReceipts(ctx context.Context, limit, offset int) ([]models.Receipt, error)
	Close()
}

// SessionStore persists deposit payment sessions so a pending-deposits list
// can re-open and re-attach to a live session after the originating view is
// gone.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.PaymentSession) error
	UpdateSessionStatus(ctx context.Context, sessionId string, status models.PaymentStatus) error
	GetSession(ctx context.Context, sessionId string) (*models.PaymentSession, error)
	ListOpenSessions(ctx context.Context) ([]models.PaymentSession, error)
	DeleteSession(ctx context.Context, sessionId string) error
}
