// Package token issues, tracks and validates time-bounded access tokens.
//
// A token is valid only if it is present in the registry and not yet past
// its expiry. Validation fails closed: malformed input, registry misses and
// expired entries all read as "invalid", never as an error.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by backends for unknown token values.
var ErrNotFound = errors.New("token not registered")

// Token is an issued credential. The Value is what travels over the wire;
// the payload fields are what it encodes. Tokens are immutable once issued.
type Token struct {
	Value       string `json:"-"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   int64  `json:"expires_at"`
	Suspicious  bool   `json:"is_suspicious"`
}

// Backend is the storage half of the registry. Implementations must be safe
// for concurrent use.
type Backend interface {
	Put(ctx context.Context, key string, tok *Token, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Token, error)
	Close() error
}

// Registry issues and validates tokens against a backend.
type Registry struct {
	backend  Backend
	validity time.Duration
}

// NewRegistry creates a registry issuing tokens valid for the given window.
func NewRegistry(backend Backend, validity time.Duration) *Registry {
	return &Registry{backend: backend, validity: validity}
}

// Validity returns the configured token lifetime.
func (r *Registry) Validity() time.Duration {
	return r.validity
}

// Issue creates, stores and returns a token for the given fingerprint. The
// suspicious flag marks mid-band visitors for downstream monitoring without
// blocking them.
func (r *Registry) Issue(ctx context.Context, fingerprint string, suspicious bool) (*Token, error) {
	now := time.Now()
	tok := &Token{
		Fingerprint: fingerprint,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(r.validity).Unix(),
		Suspicious:  suspicious,
	}

	payload, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("marshal token: %w", err)
	}
	tok.Value = base64.URLEncoding.EncodeToString(payload)

	if err := r.backend.Put(ctx, tok.Value, tok, r.validity); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

// Validate reports whether raw is a live, registry-issued token. It returns
// false on any decode error, registry miss or expiry; it never errors.
func (r *Registry) Validate(ctx context.Context, raw string) bool {
	if raw == "" {
		return false
	}

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return false
	}
	var payload Token
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return false
	}
	if time.Now().Unix() >= payload.ExpiresAt {
		return false
	}

	stored, err := r.backend.Get(ctx, raw)
	if err != nil {
		return false
	}
	return time.Now().Unix() < stored.ExpiresAt
}

// IssueDecoy produces a string shaped exactly like a real token but never
// registered, so it always fails Validate. High-scoring clients cannot tell
// rejection from acceptance by response shape.
func (r *Registry) IssueDecoy() string {
	fp := make([]byte, 16)
	rand.Read(fp)

	now := time.Now()
	payload, _ := json.Marshal(&Token{
		Fingerprint: hex.EncodeToString(fp),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(r.validity).Unix(),
	})
	return base64.URLEncoding.EncodeToString(payload)
}
