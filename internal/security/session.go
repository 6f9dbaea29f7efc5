package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the identity carried by a signed session. It is built at
// sign-in and read, never modified, by the gate and the handlers.
type SessionClaims struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	HostID     string `json:"hostId"`
	AttendeeID string `json:"attendeeId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

type sessionToken struct {
	SessionClaims
	jwt.RegisteredClaims
}

// SessionIssuer signs and parses session tokens with a shared HMAC secret.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *SessionIssuer) TTL() time.Duration {
	return i.ttl
}

func (i *SessionIssuer) Issue(claims SessionClaims) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, sessionToken{
		SessionClaims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   claims.ID,
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse returns the claims and the token expiry.
func (i *SessionIssuer) Parse(tokenStr string) (SessionClaims, time.Time, error) {
	parsed := &sessionToken{}
	token, err := jwt.ParseWithClaims(tokenStr, parsed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || parsed.SessionClaims.ID == "" || parsed.ExpiresAt == nil {
		return SessionClaims{}, time.Time{}, ErrInvalidSession
	}
	return parsed.SessionClaims, parsed.ExpiresAt.Time, nil
}
