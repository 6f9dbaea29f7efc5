package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"expressconnect/internal/models"
	"expressconnect/internal/notify"
	"expressconnect/internal/repository"
	"expressconnect/internal/verification"
)

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	failWith error
}

func newMemoryAccounts(accounts ...models.Account) *memoryAccounts {
	m := &memoryAccounts{accounts: map[string]*models.Account{}}
	for i := range accounts {
		a := accounts[i]
		m.accounts[a.Email] = &a
	}
	return m
}

func (m *memoryAccounts) get(email string) models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[email]
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return models.Account{}, m.failWith
	}
	a, ok := m.accounts[email]
	if !ok {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return *a, nil
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, email string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PasswordHash = &hash
	a.PasswordSet = true
	return nil
}

func (m *memoryAccounts) InvalidatePassword(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PasswordHash = nil
	a.PasswordSet = false
	return nil
}

func (m *memoryAccounts) UpdateResetToken(_ context.Context, email string, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiresAt
	return nil
}

func (m *memoryAccounts) ConsumeResetToken(_ context.Context, token string, hash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ResetToken == nil || *a.ResetToken != token {
			continue
		}
		if !a.ResetTokenExpiry.After(now) {
			return "", repository.ErrResetTokenExpired
		}
		a.PasswordHash = &hash
		a.PasswordSet = true
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
		return a.ID, nil
	}
	return "", repository.ErrResetTokenNotFound
}

func (m *memoryAccounts) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.accounts {
		if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
			a.ResetToken = nil
			a.ResetTokenExpiry = nil
			n++
		}
	}
	return n, nil
}

// plainHasher keeps tests fast; bcrypt is covered in the security package.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	return "plain:" + password, nil
}

func (plainHasher) Verify(password string, encodedHash string) bool {
	return strings.TrimPrefix(encodedHash, "plain:") == password && strings.HasPrefix(encodedHash, "plain:")
}

type memoryCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func newMemoryCodes() *memoryCodes {
	return &memoryCodes{codes: map[string]string{}}
}

func (m *memoryCodes) Save(_ context.Context, email string, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *memoryCodes) Verify(_ context.Context, email string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.codes[email]
	if !ok {
		return verification.ErrCodeNotFound
	}
	if stored != code {
		return verification.ErrCodeMismatch
	}
	delete(m.codes, email)
	return nil
}

type sentMessage struct {
	Kind notify.Kind
	To   string
	Data map[string]string
}

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	failWith error
}

func (n *recordingNotifier) Send(_ context.Context, kind notify.Kind, to string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, sentMessage{Kind: kind, To: to, Data: data})
	return nil
}

func (n *recordingNotifier) last() (sentMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMessage{}, false
	}
	return n.sent[len(n.sent)-1], true
}

func strPtr(s string) *string { return &s }

var testConfig = Config{
	BaseURL:           "https://app.example.com",
	SupportEmail:      "support@example.com",
	ResetTTL:          15 * time.Minute,
	CodeTTL:           24 * time.Hour,
	CodeLength:        8,
	MinPasswordLength: 8,
	StoreTimeout:      time.Second,
	NotifierTimeout:   time.Second,
}

type harness struct {
	accounts *memoryAccounts
	codes    *memoryCodes
	notifier *recordingNotifier
	creds    *CredentialService
	auth     *AuthService
	now      time.Time
}

func newHarness(accounts ...models.Account) *harness {
	h := &harness{
		accounts: newMemoryAccounts(accounts...),
		codes:    newMemoryCodes(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	log := zerolog.New(io.Discard)
	h.creds = NewCredentialService(h.accounts, plainHasher{}, testConfig, log).
		WithClock(func() time.Time { return h.now })
	h.auth = NewAuthService(h.accounts, h.creds, h.codes, h.notifier, testConfig, log)
	return h
}

func hostAdmin() models.Account {
	return models.Account{
		ID:           "acc-host",
		Email:        "hana@example.com",
		FirstName:    "  Hana ",
		LastName:     "Ito",
		Role:         models.RoleHostAdmin,
		PasswordSet:  true,
		PasswordHash: strPtr("plain:correct-horse"),
		HostID:       strPtr("host-42"),
	}
}

func attendee() models.Account {
	return models.Account{
		ID:                "acc-att",
		Email:             "ari@example.com",
		FirstName:         "Ari",
		LastName:          "Lund",
		Role:              models.RoleAttendee,
		AttendeeCompanyID: strPtr("att-7"),
	}
}
