package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"expressconnect/internal/models"
	"expressconnect/internal/notify"
	"expressconnect/internal/repository"
	"expressconnect/internal/security"
	"expressconnect/internal/verification"
)

// CodeStore keeps pending one-time codes.
type CodeStore interface {
	Save(ctx context.Context, email string, code string, ttl time.Duration) error
	Verify(ctx context.Context, email string, code string) error
}

type Method string

const (
	MethodEmailCode Method = "email-code"
	MethodPassword  Method = "password"
)

// Credentials is one of EmailCode or Password.
type Credentials interface {
	Method() Method
}

type EmailCode struct {
	Email string
	Code  string
}

func (EmailCode) Method() Method { return MethodEmailCode }

type Password struct {
	Email    string
	Password string
}

func (Password) Method() Method { return MethodPassword }

type AccountStatus struct {
	Exists      bool
	HasPassword bool
}

type CreatePasswordInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

type AuthService struct {
	accounts AccountStore
	creds    *CredentialService
	codes    CodeStore
	notifier notify.Notifier
	cfg      Config
	log      zerolog.Logger
}

func NewAuthService(
	accounts AccountStore,
	creds *CredentialService,
	codes CodeStore,
	notifier notify.Notifier,
	cfg Config,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		creds:    creds,
		codes:    codes,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

func validateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return fmt.Errorf("%w: email %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *AuthService) findAccount(ctx context.Context, email string) (models.Account, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *AuthService) send(ctx context.Context, kind notify.Kind, to string, data map[string]string) error {
	ctx, cancel := withTimeout(ctx, s.cfg.NotifierTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, kind, to, data); err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Str("email", to).Msg("notification failed")
		return ErrNotificationFailed
	}
	return nil
}

// RequestCode emails a one-time code to a known account. Unknown addresses
// get the same outcome as known ones. Once the code is out the account's
// password stops working until a new one is created.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	account, err := s.findAccount(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.log.Info().Str("email", email).Msg("code requested for unknown account")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := s.creds.GenerateOneTimeCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	saveCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	err = s.codes.Save(saveCtx, email, code, s.cfg.CodeTTL)
	cancel()
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	if err := s.send(ctx, notify.KindOTP, email, map[string]string{
		"code":          code,
		"first_name":    account.FirstName,
		"last_name":     account.LastName,
		"base_url":      s.cfg.BaseURL,
		"support_email": s.cfg.SupportEmail,
	}); err != nil {
		return err
	}

	invCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.accounts.InvalidatePassword(invCtx, email); err != nil {
		return fmt.Errorf("invalidate password: %w", err)
	}
	return nil
}

// Authenticate checks the credentials and returns the session claims for the
// account. Wrong codes and wrong passwords come back as ErrInvalidCode and
// ErrInvalidCredentials without saying which part was wrong.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) (security.SessionClaims, error) {
	switch c := creds.(type) {
	case EmailCode:
		return s.authenticateCode(ctx, c)
	case Password:
		return s.authenticatePassword(ctx, c)
	default:
		return security.SessionClaims{}, fmt.Errorf("%w: unsupported method", ErrInvalidInput)
	}
}

func (s *AuthService) authenticateCode(ctx context.Context, c EmailCode) (security.SessionClaims, error) {
	email := models.NormalizeEmail(c.Email)
	if email == "" || c.Code == "" {
		return security.SessionClaims{}, ErrInvalidCode
	}

	verifyCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	err := s.codes.Verify(verifyCtx, email, c.Code)
	cancel()
	switch {
	case errors.Is(err, verification.ErrCodeNotFound), errors.Is(err, verification.ErrCodeMismatch):
		return security.SessionClaims{}, ErrInvalidCode
	case err != nil:
		return security.SessionClaims{}, fmt.Errorf("verify code: %w", err)
	}

	account, err := s.findAccount(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.log.Warn().Str("email", email).Msg("code verified for missing account")
		}
		return security.SessionClaims{}, err
	}
	return ClaimsFor(account), nil
}

func (s *AuthService) authenticatePassword(ctx context.Context, c Password) (security.SessionClaims, error) {
	email := models.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return security.SessionClaims{}, ErrInvalidCredentials
	}

	account, err := s.findAccount(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.log.Info().Str("email", email).Msg("password sign-in for unknown account")
			return security.SessionClaims{}, ErrInvalidCredentials
		}
		return security.SessionClaims{}, err
	}

	if !account.HasPassword() {
		return security.SessionClaims{}, ErrNoPasswordConfigured
	}
	if !s.creds.VerifyPassword(c.Password, *account.PasswordHash) {
		s.log.Info().Str("account_id", account.ID).Msg("password mismatch")
		return security.SessionClaims{}, ErrInvalidCredentials
	}
	return ClaimsFor(account), nil
}

// CheckAccountStatus tells the sign-in page which method to offer.
func (s *AuthService) CheckAccountStatus(ctx context.Context, email string) (AccountStatus, error) {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return AccountStatus{}, err
	}

	account, err := s.findAccount(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return AccountStatus{}, nil
	}
	if err != nil {
		return AccountStatus{}, err
	}
	return AccountStatus{Exists: true, HasPassword: account.HasPassword()}, nil
}

func (s *AuthService) checkNewPassword(password string) error {
	if utf8.RuneCountInString(password) < s.cfg.MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// CreatePassword sets the first password on an account that has none and
// signs the caller in with it.
func (s *AuthService) CreatePassword(ctx context.Context, in CreatePasswordInput) (security.SessionClaims, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := validateEmail(in.Email); err != nil {
		return security.SessionClaims{}, err
	}
	if in.Password != in.ConfirmPassword {
		return security.SessionClaims{}, ErrPasswordMismatch
	}
	if err := s.checkNewPassword(in.Password); err != nil {
		return security.SessionClaims{}, err
	}

	account, err := s.findAccount(ctx, in.Email)
	if err != nil {
		return security.SessionClaims{}, err
	}
	if account.HasPassword() {
		return security.SessionClaims{}, ErrPasswordAlreadySet
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return security.SessionClaims{}, err
	}

	updCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	err = s.accounts.UpdatePassword(updCtx, in.Email, hash)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return security.SessionClaims{}, ErrAccountNotFound
		}
		return security.SessionClaims{}, fmt.Errorf("store password: %w", err)
	}

	return s.Authenticate(ctx, Password{Email: in.Email, Password: in.Password})
}

// InitiatePasswordReset mails a reset link when the address belongs to an
// account and is silent otherwise.
func (s *AuthService) InitiatePasswordReset(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	account, err := s.findAccount(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.log.Info().Str("email", email).Msg("reset requested for unknown account")
		return nil
	}
	if err != nil {
		return err
	}

	token, _, err := s.creds.IssueResetToken(ctx, email)
	if err != nil {
		return err
	}

	return s.send(ctx, notify.KindResetLink, email, map[string]string{
		"reset_url":     s.ResetURL(token),
		"first_name":    account.FirstName,
		"last_name":     account.LastName,
		"support_email": s.cfg.SupportEmail,
	})
}

func (s *AuthService) ResetURL(token string) string {
	return s.cfg.BaseURL + "/auth/reset-password?token=" + url.QueryEscape(token)
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, password string) error {
	if err := s.checkNewPassword(password); err != nil {
		return err
	}
	return s.creds.ConsumeResetToken(ctx, token, password)
}

// RefreshClaims rebuilds claims from the current account record so role and
// tenant changes show up on the next renewal.
func (s *AuthService) RefreshClaims(ctx context.Context, claims security.SessionClaims) (security.SessionClaims, error) {
	account, err := s.findAccount(ctx, models.NormalizeEmail(claims.Email))
	if err != nil {
		return security.SessionClaims{}, err
	}
	return ClaimsFor(account), nil
}

func ClaimsFor(account models.Account) security.SessionClaims {
	return security.SessionClaims{
		ID:         account.ID,
		Role:       string(account.Role),
		HostID:     account.HostIDOrEmpty(),
		AttendeeID: account.AttendeeIDOrEmpty(),
		Name:       account.DisplayName(),
		Email:      account.Email,
	}
}
