package recipient

import (
	"context"
	"errors"
	"testing"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/models"
)

// fakeDirectory implements backend.Service; only ResolveRecipient matters here.
type fakeDirectory struct {
	backend.Service

	lookups int
	results map[string]string
	err     error
}

func (f *fakeDirectory) ResolveRecipient(ctx context.Context, identifier string) (*models.RecipientLookupResult, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.results[identifier]
	if !ok {
		return nil, backend.ErrRecipientNotFound
	}
	return &models.RecipientLookupResult{Identifier: identifier, DisplayName: name}, nil
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		identifier string
		want       bool
	}{
		{"alice@example.com", true},
		{"a.b+c@sub.domain.org", true},
		{"12345678", true},
		{"123456789012", true},
		{"1234567", false}, // 7 digits
		{"not-an-email", false},
		{"@example.com", false},
		{"alice@", false},
		{"alice@example", false}, // no dot in domain
		{"", false},
		{"1234 5678", false},
	}

	for _, tt := range tests {
		if got := ValidIdentifier(tt.identifier); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.identifier, got, tt.want)
		}
	}
}

func TestResolveInvalidIdentifierSkipsLookup(t *testing.T) {
	directory := &fakeDirectory{results: map[string]string{}}
	resolver := NewResolver(directory)

	_, err := resolver.Resolve(context.Background(), "not-valid")
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("got %v, want ErrInvalidIdentifier", err)
	}
	if directory.lookups != 0 {
		t.Errorf("lookup count = %d, want 0 (invalid identifier must not hit the network)", directory.lookups)
	}
}

func TestResolveCachesByIdentifier(t *testing.T) {
	directory := &fakeDirectory{results: map[string]string{
		"alice@example.com": "Alice Smith",
	}}
	resolver := NewResolver(directory)
	ctx := context.Background()

	result, err := resolver.Resolve(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.DisplayName != "Alice Smith" {
		t.Errorf("display name = %q, want %q", result.DisplayName, "Alice Smith")
	}

	if _, err := resolver.Resolve(ctx, "alice@example.com"); err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if directory.lookups != 1 {
		t.Errorf("lookup count = %d, want 1 (second call must hit the cache)", directory.lookups)
	}
}

func TestResolveInvalidatesOnNewIdentifier(t *testing.T) {
	directory := &fakeDirectory{results: map[string]string{
		"alice@example.com": "Alice Smith",
		"12345678":          "Bob Jones",
	}}
	resolver := NewResolver(directory)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "12345678"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolver.Resolved("alice@example.com") != nil {
		t.Error("old identifier still resolved after a different lookup")
	}
	if resolver.Resolved("12345678") == nil {
		t.Error("current identifier should be resolved")
	}
}

func TestResolveNotFoundClearsCache(t *testing.T) {
	directory := &fakeDirectory{results: map[string]string{
		"alice@example.com": "Alice Smith",
	}}
	resolver := NewResolver(directory)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	_, err := resolver.Resolve(ctx, "nobody@example.com")
	if !errors.Is(err, backend.ErrRecipientNotFound) {
		t.Fatalf("got %v, want ErrRecipientNotFound", err)
	}

	if resolver.Resolved("alice@example.com") != nil {
		t.Error("cache must be invalidated after a failed lookup")
	}
}
