package recipient

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/models"

	"go.uber.org/zap"
)

// ErrInvalidIdentifier means the identifier matched neither the email nor the
// account-number pattern. No lookup call is made in that case.
var ErrInvalidIdentifier = errors.New("identifier is not an email or account number")

// MsgInvalidIdentifier is the field-level message for a non-matching input.
const MsgInvalidIdentifier = "Enter a valid email or account number"

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	accountPattern = regexp.MustCompile(`^\d{8,}$`)
)

// ValidIdentifier reports whether a lookup may be attempted at all.
func ValidIdentifier(identifier string) bool {
	return emailPattern.MatchString(identifier) || accountPattern.MatchString(identifier)
}

// Resolver resolves a free-form transfer identifier to a display name. The
// last result is cached by identifier and invalidated the moment a different
// identifier is looked up.
type Resolver struct {
	directory backend.Service

	mu     sync.Mutex
	result *models.RecipientLookupResult
}

func NewResolver(directory backend.Service) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve looks up an identifier. Invalid identifiers short-circuit without a
// network call; not-found surfaces backend.ErrRecipientNotFound. Both paths
// clear any cached result.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*models.RecipientLookupResult, error) {
	if !ValidIdentifier(identifier) {
		r.invalidate()
		return nil, ErrInvalidIdentifier
	}

	r.mu.Lock()
	if r.result != nil && r.result.Identifier == identifier {
		cached := r.result
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	result, err := r.directory.ResolveRecipient(ctx, identifier)
	if err != nil {
		r.invalidate()
		if errors.Is(err, backend.ErrRecipientNotFound) {
			return nil, err
		}
		zap.L().Warn("Recipient lookup failed", zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	r.result = result
	r.mu.Unlock()

	zap.L().Debug("Recipient resolved",
		zap.String("identifier", identifier),
		zap.String("display_name", result.DisplayName))

	return result, nil
}

// Resolved returns the cached result only if it still matches the given
// identifier. The wizard may not advance a TRANSFER past details entry while
// this returns nil.
func (r *Resolver) Resolved(identifier string) *models.RecipientLookupResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.result != nil && r.result.Identifier == identifier {
		return r.result
	}
	return nil
}

func (r *Resolver) invalidate() {
	r.mu.Lock()
	r.result = nil
	r.mu.Unlock()
}
