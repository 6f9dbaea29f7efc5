package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"expressconnect/internal/config"
	"expressconnect/internal/gate"
	"expressconnect/internal/middleware"
	"expressconnect/internal/security"
	"expressconnect/internal/service"
)

// AuthService is what the handlers need from the orchestrator.
type AuthService interface {
	RequestCode(ctx context.Context, email string) error
	Authenticate(ctx context.Context, creds service.Credentials) (security.SessionClaims, error)
	CheckAccountStatus(ctx context.Context, email string) (service.AccountStatus, error)
	CreatePassword(ctx context.Context, in service.CreatePasswordInput) (security.SessionClaims, error)
	InitiatePasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, password string) error
	RefreshClaims(ctx context.Context, claims security.SessionClaims) (security.SessionClaims, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Auth     AuthService
	Sessions *security.SessionIssuer
	Gate     *gate.Gate
	DB       Pinger
	Cache    redis.UniversalClient
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     AuthService
	sessions *security.SessionIssuer
	gate     *gate.Gate
	cookie   middleware.SessionCookie
	db       Pinger
	cache    redis.UniversalClient
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		gate:     deps.Gate,
		cookie:   middleware.NewSessionCookie(cfg.Security),
		db:       deps.DB,
		cache:    deps.Cache,
	}
}

// Middleware returns the session and gate stages, in order. They run after
// the generic request middleware.
func (h HandlerSet) Middleware() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Session(h.sessions, h.auth, h.cookie, h.cfg.Security.RenewWindow, h.log),
		middleware.Gate(h.gate, h.log),
	}
}

func (h HandlerSet) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)

	auth := engine.Group("/api/auth")
	{
		auth.POST("/status", h.AccountStatus)
		auth.POST("/code", h.RequestCode)
		auth.POST("/code/verify", h.VerifyCode)
		auth.POST("/password", h.PasswordSignIn)
		auth.POST("/password/create", h.CreatePassword)
		auth.POST("/password/forgot", h.ForgotPassword)
		auth.POST("/password/reset", h.ResetPassword)
		auth.GET("/session", h.Session)
		auth.POST("/signout", h.SignOut)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps service errors to a status and a stable code. Anything
// unrecognised is logged and reported as a generic failure.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "request_failed", "Failed to process request"

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "invalid_input", "Invalid request"
	case errors.Is(err, service.ErrPasswordMismatch):
		status, code, message = http.StatusBadRequest, "password_mismatch", "Passwords do not match"
	case errors.Is(err, service.ErrPasswordTooShort):
		status, code, message = http.StatusBadRequest, "password_too_short", "Password is too short"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"
	case errors.Is(err, service.ErrInvalidCode):
		status, code, message = http.StatusUnauthorized, "invalid_code", "Invalid or expired code"
	case errors.Is(err, service.ErrNoPasswordConfigured):
		status, code, message = http.StatusConflict, "no_password_configured", "Sign in with an email code to set a password"
	case errors.Is(err, service.ErrPasswordAlreadySet):
		status, code, message = http.StatusConflict, "password_already_set", "A password is already set for this account"
	case errors.Is(err, service.ErrAccountNotFound):
		status, code, message = http.StatusNotFound, "account_not_found", "No account found for this email"
	case errors.Is(err, service.ErrTokenExpired):
		status, code, message = http.StatusGone, "token_expired", "This reset link has expired"
	case errors.Is(err, service.ErrTokenNotFound):
		status, code, message = http.StatusNotFound, "token_not_found", "This reset link is invalid or was already used"
	case errors.Is(err, service.ErrNotificationFailed):
		status, code, message = http.StatusBadGateway, "request_failed", "Failed to process request"
	default:
		h.log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.Writer.Header().Get("X-Request-Id")).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message})
}
