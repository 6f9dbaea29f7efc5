package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"expressconnect/internal/config"
	"expressconnect/internal/security"
	"expressconnect/internal/service"
)

const sessionClaimsKey = "session_claims"

// ClaimsRefresher reloads claims from the account record.
type ClaimsRefresher interface {
	RefreshClaims(ctx context.Context, claims security.SessionClaims) (security.SessionClaims, error)
}

type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

func NewSessionCookie(cfg config.SecurityConfig) SessionCookie {
	return SessionCookie{Name: cfg.CookieName, Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
}

func (sc SessionCookie) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, token, maxAge, "/", sc.Domain, sc.Secure, true)
}

func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", sc.Domain, sc.Secure, true)
}

// Session attaches the caller's claims to the context when a valid session
// token is present. It never rejects a request; the gate does that. Sessions
// close to expiry are re-issued from the current account record.
func Session(issuer *security.SessionIssuer, refresher ClaimsRefresher, cookie SessionCookie, renewWindow time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, fromCookie := sessionToken(c, cookie.Name)
		if tokenStr == "" {
			c.Next()
			return
		}

		claims, expiresAt, err := issuer.Parse(tokenStr)
		if err != nil {
			if fromCookie {
				cookie.Clear(c)
			}
			c.Next()
			return
		}

		if time.Until(expiresAt) < renewWindow {
			refreshed, err := refresher.RefreshClaims(c.Request.Context(), claims)
			switch {
			case errors.Is(err, service.ErrAccountNotFound):
				log.Info().Str("account_id", claims.ID).Msg("session for removed account dropped")
				cookie.Clear(c)
				c.Next()
				return
			case err != nil:
				log.Warn().Err(err).Str("account_id", claims.ID).Msg("session renewal failed")
			default:
				claims = refreshed
				if token, exp, err := issuer.Issue(claims); err != nil {
					log.Error().Err(err).Msg("session re-issue failed")
				} else if fromCookie {
					cookie.Set(c, token, exp)
				} else {
					c.Header("X-Session-Token", token)
				}
			}
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) (string, bool) {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token, true
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), false
	}
	return "", false
}

// ClaimsFrom returns the session claims set by Session, or nil.
func ClaimsFrom(c *gin.Context) *security.SessionClaims {
	v, ok := c.Get(sessionClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(security.SessionClaims)
	if !ok {
		return nil
	}
	return &claims
}
