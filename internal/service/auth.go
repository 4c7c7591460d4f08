// Package service contains the client-side application services: the session
// store, the owner's video list and rankings.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/repository"
)

// AuthAPI is the subset of the backend used by the session store.
type AuthAPI interface {
	Signup(ctx context.Context, req model.SignupRequest) error
	Login(ctx context.Context, cred model.Credentials) (model.LoginResult, error)
	Me(ctx context.Context, token string) (*model.User, error)
	Logout(ctx context.Context, token string) error
}

// TokenSource yields the current bearer token, empty when logged out.
type TokenSource interface {
	Token() string
}

// AuthService defines session operations.
type AuthService interface {
	TokenSource
	// Login authenticates and persists the token and, when available, the profile.
	Login(ctx context.Context, email, password string) error
	// Logout clears the session locally even when the server call fails.
	Logout(ctx context.Context) error
	// Register creates the account and logs in with the new credentials.
	Register(ctx context.Context, req model.SignupRequest) error
	// Restore loads the persisted session.
	Restore(ctx context.Context) error
	// Session returns a snapshot of the current state.
	Session() model.Session
}

type AuthServiceImpl struct {
	api  AuthAPI
	repo repository.SessionRepository
	log  *zap.Logger

	mu   sync.RWMutex
	sess model.Session
}

// NewAuthService constructs AuthService. A nil logger is replaced by a no-op one.
func NewAuthService(api AuthAPI, repo repository.SessionRepository, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{api: api, repo: repo, log: log}
}

// Session returns a copy of the current session.
func (s *AuthServiceImpl) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.Session{Token: s.sess.Token}
	if s.sess.User != nil {
		u := *s.sess.User
		out.User = &u
	}
	return out
}

// Token returns the bearer token or "".
func (s *AuthServiceImpl) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Token
}

// User returns the cached profile or nil.
func (s *AuthServiceImpl) User() *model.User {
	return s.Session().User
}

// Login calls the login endpoint and keeps the returned token. The profile is
// taken from /api/me; if that fails the one embedded in the login response is
// used, and if there is none the session stays token-only. Keeping the
// embedded profile is intentional: a failed /api/me alone would otherwise
// drop a user the backend already returned.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) error {
	res, err := s.api.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := s.setToken(ctx, res.Token); err != nil {
		return err
	}

	u, err := s.api.Me(ctx, res.Token)
	if err != nil {
		s.log.Warn("profile fetch failed, continuing without profile", zap.Error(err))
		u = res.User
	}
	return s.setUser(ctx, u)
}

// Logout tells the backend the session is over and then clears local state.
// A failed server call is logged and does not prevent the local clear.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	if tok := s.Token(); tok != "" {
		if err := s.api.Logout(ctx, tok); err != nil {
			s.log.Warn("server logout failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.sess = model.Session{}
	s.mu.Unlock()

	return errors.Join(
		s.repo.Remove(ctx, repository.KeyToken),
		s.repo.Remove(ctx, repository.KeyUser),
	)
}

// Register signs up and then logs in with the same email and password1.
func (s *AuthServiceImpl) Register(ctx context.Context, req model.SignupRequest) error {
	if err := s.api.Signup(ctx, req); err != nil {
		return err
	}
	return s.Login(ctx, req.Email, req.Password1)
}

// Restore loads the token and profile from the store. A profile that no
// longer decodes is dropped and the session continues with the token only.
func (s *AuthServiceImpl) Restore(ctx context.Context) error {
	tok, _, err := s.repo.Get(ctx, repository.KeyToken)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	raw, ok, err := s.repo.Get(ctx, repository.KeyUser)
	if err != nil {
		return fmt.Errorf("restore user: %w", err)
	}

	var u *model.User
	if ok {
		var decoded model.User
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			s.log.Warn("discarding malformed stored profile", zap.Error(err))
			if err := s.repo.Remove(ctx, repository.KeyUser); err != nil {
				return err
			}
		} else {
			u = &decoded
		}
	}

	s.mu.Lock()
	s.sess = model.Session{Token: tok, User: u}
	s.mu.Unlock()
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// It is for display only; ok is false when the token is not a JWT or has no exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *AuthServiceImpl) setToken(ctx context.Context, tok string) error {
	s.mu.Lock()
	s.sess.Token = tok
	s.mu.Unlock()

	if tok == "" {
		return s.repo.Remove(ctx, repository.KeyToken)
	}
	if err := s.repo.Set(ctx, repository.KeyToken, tok); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) setUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	if u != nil {
		cp := *u
		s.sess.User = &cp
	} else {
		s.sess.User = nil
	}
	s.mu.Unlock()

	if u == nil {
		return s.repo.Remove(ctx, repository.KeyUser)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, repository.KeyUser, string(b)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}
