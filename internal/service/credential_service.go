package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"expressconnect/internal/models"
	"expressconnect/internal/repository"
	"expressconnect/internal/security"
)

// AccountStore is the slice of the account repository the services need.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, email string, passwordHash string) error
	InvalidatePassword(ctx context.Context, email string) error
	UpdateResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (string, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) bool
}

// CredentialService owns password hashing, one-time codes and reset tokens.
type CredentialService struct {
	accounts AccountStore
	hasher   PasswordHasher
	cfg      Config
	now      func() time.Time
	log      zerolog.Logger
}

func NewCredentialService(accounts AccountStore, hasher PasswordHasher, cfg Config, log zerolog.Logger) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		hasher:   hasher,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	s.now = now
	return s
}

func (s *CredentialService) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

func (s *CredentialService) VerifyPassword(password string, encodedHash string) bool {
	return s.hasher.Verify(password, encodedHash)
}

func (s *CredentialService) GenerateOneTimeCode() (string, error) {
	return security.GenerateOneTimeCode(s.cfg.CodeLength)
}

// IssueResetToken stores a fresh token on the account, replacing any earlier one.
func (s *CredentialService) IssueResetToken(ctx context.Context, email string) (string, time.Time, error) {
	token := security.NewResetToken()
	expiresAt := s.now().Add(s.cfg.ResetTTL).UTC()

	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.accounts.UpdateResetToken(ctx, email, token, expiresAt); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", time.Time{}, ErrAccountNotFound
		}
		return "", time.Time{}, fmt.Errorf("store reset token: %w", err)
	}
	return token, expiresAt, nil
}

// ConsumeResetToken sets a new password for the token's owner. The token is
// cleared in the same write, so a second use reports ErrTokenNotFound.
func (s *CredentialService) ConsumeResetToken(ctx context.Context, token string, newPassword string) error {
	if !security.IsResetToken(token) {
		return ErrTokenNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	id, err := s.accounts.ConsumeResetToken(ctx, token, hash, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrResetTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, repository.ErrResetTokenNotFound):
		return ErrTokenNotFound
	case err != nil:
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.log.Info().Str("account_id", id).Msg("password reset")
	return nil
}

// SweepExpiredResetTokens removes tokens that expired more than
// ResetSweepGrace ago. Until then a stale link still reports ErrTokenExpired.
func (s *CredentialService) SweepExpiredResetTokens(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.cfg.ResetSweepGrace)
	n, err := s.accounts.ClearExpiredResetTokens(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return n, nil
}
