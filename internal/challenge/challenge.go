// Package challenge issues and tracks short-lived arithmetic challenges.
//
// A challenge is a proof-of-attention filter, not a security boundary: it
// weeds out clients that never execute server-issued logic while staying
// trivially solvable by a simple script. Challenge failure therefore feeds
// the scoring engine instead of deciding anything on its own.
package challenge

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a challenge id is unknown or expired.
var ErrNotFound = errors.New("challenge not found")

// Operation is the arithmetic operation of a challenge, in wire form.
type Operation string

const (
	OpAdd Operation = "add"
	OpSub Operation = "sub"
	OpMul Operation = "mul"
)

var operations = []Operation{OpAdd, OpSub, OpMul}

// Challenge is a single-use arithmetic puzzle. The expected solution is
// never sent to the client.
type Challenge struct {
	ID          string    `json:"id"`
	Operation   Operation `json:"operation"`
	A           int       `json:"a"`
	B           int       `json:"b"`
	Expected    int       `json:"expected"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Fingerprint string    `json:"fingerprint"`
}

// Statement returns the client-facing challenge string, e.g. "add|37|82".
func (c *Challenge) Statement() string {
	return fmt.Sprintf("%s|%d|%d", c.Operation, c.A, c.B)
}

// CheckSolution compares a submitted solution against the expected one using
// string-normalized comparison.
func (c *Challenge) CheckSolution(solution string) bool {
	return strings.TrimSpace(solution) == strconv.Itoa(c.Expected)
}

// Backend is the storage half of the challenge store. Implementations must
// be safe for concurrent use.
type Backend interface {
	Put(ctx context.Context, ch *Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Challenge, error)
	Close() error
}

// Store issues challenges and resolves them for verification.
type Store struct {
	backend    Backend
	difficulty int
	validity   time.Duration
}

// NewStore creates a challenge store. Difficulty outside [1,3] is clamped.
func NewStore(backend Backend, difficulty int, validity time.Duration) *Store {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 3 {
		difficulty = 3
	}
	return &Store{backend: backend, difficulty: difficulty, validity: validity}
}

// Operand ranges per difficulty tier.
var tierRanges = map[int][2]int{
	1: {1, 10},
	2: {10, 100},
	3: {100, 1000},
}

// Issue creates, records and returns a new challenge for the given
// fingerprint. The fingerprint is informational and not trusted.
func (s *Store) Issue(ctx context.Context, fingerprint string) (*Challenge, error) {
	op := operations[mrand.Intn(len(operations))]
	bounds := tierRanges[s.difficulty]
	a := bounds[0] + mrand.Intn(bounds[1]-bounds[0]+1)
	b := bounds[0] + mrand.Intn(bounds[1]-bounds[0]+1)

	var expected int
	switch op {
	case OpAdd:
		expected = a + b
	case OpSub:
		expected = a - b
	case OpMul:
		expected = a * b
	}

	now := time.Now()
	ch := &Challenge{
		ID:          newID(fingerprint, now),
		Operation:   op,
		A:           a,
		B:           b,
		Expected:    expected,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.validity),
		Fingerprint: fingerprint,
	}

	if err := s.backend.Put(ctx, ch, s.validity); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return ch, nil
}

// Consume looks up the challenge for verification. It returns ErrNotFound
// for unknown or expired ids; removal of stored entries is left to backend
// eviction.
func (s *Store) Consume(ctx context.Context, id string) (*Challenge, error) {
	ch, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if time.Now().After(ch.ExpiresAt) {
		return nil, ErrNotFound
	}
	return ch, nil
}

// newID derives an opaque id from the fingerprint, the issuance time and a
// random salt, so ids cannot be precomputed across sessions.
func newID(fingerprint string, issued time.Time) string {
	salt := make([]byte, 16)
	rand.Read(salt)
	sum := sha256.Sum256([]byte(fingerprint + ":" + strconv.FormatInt(issued.UnixNano(), 10) + ":" + hex.EncodeToString(salt)))
	return hex.EncodeToString(sum[:16])
}
