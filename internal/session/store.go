// Package session owns the bearer token and the identity derived from it.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

// ErrUnauthenticated is returned by Require when no valid identity is present.
var ErrUnauthenticated = errors.New("not authenticated")

// TokenStore is the durable storage for the raw bearer token.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	PutToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

// Store is the single writer of token state. Every other component reads
// identity through it and registers interest via Subscribe; there is no
// ambient global.
type Store struct {
	creds TokenStore
	now   func() time.Time

	mu     sync.Mutex
	token  string
	claims *domain.Claims
	expiry *time.Timer
	subs   []func()
}

// NewStore creates a session store and restores any persisted token.
// A persisted token that is malformed or already expired is erased.
func NewStore(creds TokenStore) *Store {
	s := &Store{creds: creds, now: time.Now}
	token, err := creds.Token(context.Background())
	if err != nil {
		log.Printf("WARN: failed to read persisted token: %v", err)
		return s
	}
	if token != "" {
		s.mu.Lock()
		s.setTokenLocked(token)
		s.mu.Unlock()
	}
	return s
}

// Login persists the token unconditionally and sets it as current.
// A token that fails to decode, or is already expired, fails closed:
// the store ends up logged out and the persisted token is erased.
func (s *Store) Login(token string) {
	if err := s.creds.PutToken(context.Background(), token); err != nil {
		log.Printf("WARN: failed to persist token: %v", err)
	}
	s.mu.Lock()
	s.setTokenLocked(token)
	s.mu.Unlock()
	s.notify()
}

// Logout clears the current and persisted token. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	changed := s.token != "" || s.claims != nil
	s.clearLocked()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Current returns the decoded claims, or nil when logged out. Pure read.
func (s *Store) Current() *domain.Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

// Token returns the raw bearer token for outgoing requests.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Require is the gate for authenticated operations. It re-checks expiry at
// the moment of the call: a token that expired while the process was idle
// forces a logout here and the operation is rejected locally.
func (s *Store) Require() (*domain.Claims, error) {
	s.mu.Lock()
	if s.claims == nil {
		s.mu.Unlock()
		return nil, ErrUnauthenticated
	}
	if !s.claims.ExpiresAt.After(s.now()) {
		s.clearLocked()
		s.mu.Unlock()
		s.notify()
		return nil, ErrUnauthenticated
	}
	claims := s.claims
	s.mu.Unlock()
	return claims, nil
}

// Subscribe registers fn to be called after every session state transition.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// setTokenLocked runs decode-and-validate for a new token. The caller is
// responsible for persisting the token beforehand and for notifying after.
func (s *Store) setTokenLocked(token string) {
	s.stopTimerLocked()
	s.token = token
	s.claims = nil

	claims, err := decode(token)
	if err != nil {
		log.Printf("WARN: rejecting bearer token: %v", err)
		s.clearLocked()
		return
	}
	remaining := claims.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		s.clearLocked()
		return
	}

	s.claims = claims
	s.expiry = time.AfterFunc(remaining, func() { s.expire(token) })
}

// expire fires from the scheduled timer. The token is re-checked so that a
// login that replaced it in the meantime is left alone.
func (s *Store) expire(token string) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) clearLocked() {
	s.stopTimerLocked()
	s.token = ""
	s.claims = nil
	if err := s.creds.DeleteToken(context.Background()); err != nil {
		log.Printf("WARN: failed to erase persisted token: %v", err)
	}
}

func (s *Store) stopTimerLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// decode parses the token's embedded claims without verifying the
// signature; the client only uses them for UI gating.
func decode(token string) (*domain.Claims, error) {
	claims := &domain.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("token carries no expiry")
	}
	return claims, nil
}
