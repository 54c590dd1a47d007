package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trading-core-go/internal/models"
	"trading-core-go/internal/store"

	"github.com/shopspring/decimal"
)

// SaveSession inserts or replaces a deposit payment session.
func (s *Service) SaveSession(ctx context.Context, session *models.PaymentSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO payment_sessions (
			session_id, asset_symbol, currency, fiat_amount, payment_address,
			expected_asset_amount, status, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionId,
		session.AssetSymbol,
		session.Currency,
		session.FiatAmount.String(),
		session.PaymentAddress,
		session.ExpectedAssetAmount.String(),
		string(session.Status),
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("unable to save payment session: %w", err)
	}
	return nil
}

// UpdateSessionStatus records a polled status change.
func (s *Service) UpdateSessionStatus(ctx context.Context, sessionId string, status models.PaymentStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE payment_sessions SET status = ? WHERE session_id = ?`,
		string(status), sessionId)
	if err != nil {
		return fmt.Errorf("unable to update session status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to read rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *Service) GetSession(ctx context.Context, sessionId string) (*models.PaymentSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, asset_symbol, currency, fiat_amount, payment_address,
		       expected_asset_amount, status, expires_at, created_at
		FROM payment_sessions WHERE session_id = ?`, sessionId)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// ListOpenSessions returns every non-terminal session, newest-first. This
// backs the pending-deposits list.
func (s *Service) ListOpenSessions(ctx context.Context) ([]models.PaymentSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, asset_symbol, currency, fiat_amount, payment_address,
		       expected_asset_amount, status, expires_at, created_at
		FROM payment_sessions
		WHERE status NOT IN ('COMPLETED', 'FAILED', 'EXPIRED')
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("unable to query open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.PaymentSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	return sessions, rows.Err()
}

func (s *Service) DeleteSession(ctx context.Context, sessionId string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM payment_sessions WHERE session_id = ?`, sessionId)
	if err != nil {
		return fmt.Errorf("unable to delete payment session: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.PaymentSession, error) {
	var session models.PaymentSession
	var fiatAmount, expectedAmount, status string

	err := row.Scan(
		&session.SessionId,
		&session.AssetSymbol,
		&session.Currency,
		&fiatAmount,
		&session.PaymentAddress,
		&expectedAmount,
		&status,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if session.FiatAmount, err = decimal.NewFromString(fiatAmount); err != nil {
		return nil, fmt.Errorf("corrupt fiat_amount for session %s: %w", session.SessionId, err)
	}
	if session.ExpectedAssetAmount, err = decimal.NewFromString(expectedAmount); err != nil {
		return nil, fmt.Errorf("corrupt expected_asset_amount for session %s: %w", session.SessionId, err)
	}
	session.Status = models.PaymentStatus(status)

	return &session, nil
}
