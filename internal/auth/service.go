package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
	"github.com/anibalssilva/tech-challenge-books-api/internal/store"
)

// ErrInvalidCredentials is returned by Login for a bad username or password.
// The two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service composes the credential store, the password hasher, and the token
// issuer into the authentication flows the HTTP layer needs.
type Service struct {
	store  *store.Store
	tokens *TokenIssuer
}

// NewService creates an auth Service.
func NewService(st *store.Store, tokens *TokenIssuer) *Service {
	return &Service{store: st, tokens: tokens}
}

// Tokens exposes the underlying token issuer.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register hashes the password and persists a new user. The plaintext is
// never stored. Returns store.ErrDuplicate if the username is taken.
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.store.Create(ctx, username, hash)
}

// Login verifies the credentials and issues a fresh access token. An unknown
// username and a wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(user.Username, s.tokens.TTL())
}

// Refresh validates the presented token and issues a new one with a fresh
// TTL. An expired token fails with ErrTokenExpired rather than silently
// succeeding: pre-expiry renewal is allowed, post-expiry forces a re-login.
// The subject is re-resolved against the store so a token for a deleted
// account cannot be renewed.
func (s *Service) Refresh(ctx context.Context, tokenStr string) (string, error) {
	subject, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return "", err // ErrTokenExpired or ErrInvalidToken
	}

	user, err := s.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	return s.tokens.Issue(user.Username, s.tokens.TTL())
}

// Authenticate resolves a bearer token to the identity it names. The store
// lookup happens on every call: disabling an account invalidates all of its
// outstanding tokens at the next verification, with no caching of the
// active flag.
func (s *Service) Authenticate(ctx context.Context, tokenStr string) (*model.User, error) {
	subject, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
