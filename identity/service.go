// Package identity owns registration, login, logout and session
// resolution. The service layer never touches http.Request/Response —
// only domain models and the store.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"hermes/models"
	"hermes/pkg"
	"hermes/store"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Service implements register/login/logout/resolve over the store.
type Service struct {
	db         *store.DB
	sessionTTL time.Duration
}

func NewService(db *store.DB, sessionTTL time.Duration) *Service {
	return &Service{db: db, sessionTTL: sessionTTL}
}

// Register validates, normalizes, hashes the password and inserts a user.
// Conflicts on the unique indexes surface as typed CONFLICT errors.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, pkg.Validation("%s", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, pkg.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Status:       "offline",
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login resolves identity as username then email (both already
// case-folded by LoginRequest.Validate) and issues a new session token.
// Mismatch and not-found both return the same generic UNAUTHENTICATED
// error so no username/email enumeration is possible.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.User, *models.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, pkg.Validation("%s", err.Error())
	}

	const genericErr = "invalid identity or password"

	user, err := s.db.GetActiveUserByIdentity(ctx, req.Identity)
	if err != nil {
		var pe *pkg.Error
		if errors.As(err, &pe) && pe.Kind == pkg.KindNotFound {
			return nil, nil, pkg.Unauthenticated(genericErr)
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, pkg.Unauthenticated(genericErr)
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout revokes a session token; idempotent when the token is already
// gone or invalid.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.DeleteSession(ctx, token)
}

// Resolve validates a session token and returns its owning user. Used by
// the auth middleware for both cookie and query-param transports.
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, pkg.Unauthenticated("missing session")
	}
	session, err := s.db.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.db.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, pkg.Unauthenticated("invalid session")
	}
	if !user.Active {
		return nil, pkg.Unauthenticated("invalid session")
	}
	return user, nil
}

// DeleteAccount ghosts the user and revokes every outstanding session.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.db.DeleteSessionsForUser(ctx, userID); err != nil {
		return err
	}
	return s.db.GhostUser(ctx, userID)
}

func (s *Service) newSession(ctx context.Context, userID int64) (*models.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, pkg.Internal(fmt.Errorf("failed to generate session token: %w", err))
	}
	session := &models.Session{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.db.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
