// Package auth keeps the bearer credential issued by the API server and the
// identity decoded from it.
//
// The token is signed by the server; the client only decodes its claims to
// learn who is logged in and with which role. The server re-verifies the
// signature on every call.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

const (
	// TokenKey is the storage key holding the bearer credential.
	TokenKey = "token"

	// TopicChanged is published with the new Identity (zero when logged out).
	TopicChanged = "auth.changed"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims is the payload the API server puts in its tokens.
type Claims struct {
	UserID string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the logged-in user.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  models.Role
}

// Anonymous reports whether nobody is logged in.
func (i Identity) Anonymous() bool { return i.ID == "" }

// Decode extracts the claims of token without verifying its signature.
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing id or unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Session owns the credential and mirrors it to durable storage.
type Session struct {
	mu       sync.RWMutex
	token    string
	identity Identity

	storage localstore.Store
	bus     *event.Bus
	log     *slog.Logger
}

// NewSession creates an anonymous session. Call Restore to pick up a stored
// credential.
func NewSession(storage localstore.Store, bus *event.Bus) *Session {
	if bus == nil {
		bus = event.New()
	}
	return &Session{storage: storage, bus: bus, log: logger.L}
}

// Restore loads the stored token. An unreadable, malformed or expired token
// is discarded and the session stays anonymous.
func (s *Session) Restore(ctx context.Context) Identity {
	raw, err := s.storage.Get(ctx, TokenKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return Identity{}
	}
	if err != nil {
		metrics.LocalStoreErrors.WithLabelValues("load").Inc()
		s.log.Error("auth: load token failed", "error", err)
		return Identity{}
	}

	claims, err := Decode(string(raw))
	if err != nil {
		s.log.Warn("auth: discarding stored token", "error", err)
		if err := s.storage.Delete(ctx, TokenKey); err != nil {
			metrics.LocalStoreErrors.WithLabelValues("delete").Inc()
			s.log.Error("auth: delete token failed", "error", err)
		}
		return Identity{}
	}

	return s.set(string(raw), claims)
}

// Login adopts token. A token that cannot be decoded leaves the session
// unchanged.
func (s *Session) Login(ctx context.Context, token string) (Identity, error) {
	claims, err := Decode(token)
	if err != nil {
		return Identity{}, err
	}
	if err := s.storage.Set(ctx, TokenKey, []byte(token)); err != nil {
		metrics.LocalStoreErrors.WithLabelValues("persist").Inc()
		s.log.Error("auth: persist token failed", "error", err)
	}
	id := s.set(token, claims)
	s.log.Info("auth: logged in", "user_id", id.ID, "role", id.Role)
	return id, nil
}

// Logout forgets the credential.
func (s *Session) Logout(ctx context.Context) {
	if err := s.storage.Delete(ctx, TokenKey); err != nil {
		metrics.LocalStoreErrors.WithLabelValues("delete").Inc()
		s.log.Error("auth: delete token failed", "error", err)
	}
	s.mu.Lock()
	s.token = ""
	s.identity = Identity{}
	s.mu.Unlock()
	s.bus.Publish(TopicChanged, Identity{})
}

func (s *Session) set(token string, c *Claims) Identity {
	id := Identity{ID: c.UserID, Name: c.Name, Email: c.Email, Role: c.Role}
	s.mu.Lock()
	s.token = token
	s.identity = id
	s.mu.Unlock()
	s.bus.Publish(TopicChanged, id)
	return id
}

// Token returns the bearer credential, empty when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns the logged-in user.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// HasRole reports whether the logged-in user has one of roles.
func (s *Session) HasRole(roles ...models.Role) bool {
	id := s.Identity()
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// Subscribe calls fn whenever the identity changes.
func (s *Session) Subscribe(fn func(Identity)) (unsubscribe func()) {
	return s.bus.Subscribe(TopicChanged, func(p interface{}) { fn(p.(Identity)) })
}
