package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	SessionSecret string
	CodeSecret    string
	SessionTTL    time.Duration
	RenewWindow   time.Duration
	BcryptCost    int
	CookieName    string
	CookieDomain  string
	CookieSecure  bool
}

// AuthConfig holds the values the sign-in flows and the gate need.
type AuthConfig struct {
	BaseURL           string
	ResetTTL          time.Duration
	CodeTTL           time.Duration
	CodeLength        int
	MinPasswordLength int
	APIPrefixes       []string
	SignInPath        string
	UnauthorizedPath  string
	AdminHome         string
}

type NotifyConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MaxDeliveries int64
	From          string
	SupportEmail  string
}

type TimeoutConfig struct {
	Store    time.Duration
	Notifier time.Duration
}

type JobsConfig struct {
	ResetSweepSpec  string
	// ResetSweepGrace keeps expired reset tokens around long enough to be
	// reported as expired rather than unknown.
	ResetSweepGrace time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Auth             AuthConfig
	Notify           NotifyConfig
	Timeouts         TimeoutConfig
	Jobs             JobsConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

var (
	ErrMissingSessionSecret = errors.New("security.sessionsecret is required")
	ErrMissingCodeSecret    = errors.New("security.codesecret is required")
	ErrSharedSecret         = errors.New("security.codesecret must differ from security.sessionsecret")
	ErrMissingBaseURL       = errors.New("auth.baseurl is required")
)

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("EXPRESSCONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Auth.BaseURL = strings.TrimRight(cfg.Auth.BaseURL, "/")
	return &cfg, nil
}

// Validate reports settings the api cannot start without.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Security.SessionSecret) == "" {
		return ErrMissingSessionSecret
	}
	if strings.TrimSpace(c.Security.CodeSecret) == "" {
		return ErrMissingCodeSecret
	}
	if c.Security.CodeSecret == c.Security.SessionSecret {
		return ErrSharedSecret
	}
	if c.Auth.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.sessionttl", "720h") // 30 days
	v.SetDefault("security.renewwindow", "24h")
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.cookiename", "session")
	v.SetDefault("security.cookiesecure", true)

	v.SetDefault("auth.resetttl", "15m")
	v.SetDefault("auth.codettl", "24h")
	v.SetDefault("auth.codelength", 8)
	v.SetDefault("auth.minpasswordlength", 8)
	v.SetDefault("auth.apiprefixes", []string{"/api/auth/", "/api/users/"})
	v.SetDefault("auth.signinpath", "/auth/signin")
	v.SetDefault("auth.unauthorizedpath", "/auth/unauthorized")
	v.SetDefault("auth.adminhome", "/admin/me")

	v.SetDefault("notify.stream", "notify:outbound")
	v.SetDefault("notify.group", "notify-workers")
	v.SetDefault("notify.consumer", "worker-1")
	v.SetDefault("notify.claiminterval", "30s")
	v.SetDefault("notify.maxdeliveries", 5)

	v.SetDefault("timeouts.store", "5s")
	v.SetDefault("timeouts.notifier", "10s")

	v.SetDefault("jobs.resetsweepspec", "0 0 * * * *") // hourly
	v.SetDefault("jobs.resetsweepgrace", "24h")

	v.SetDefault("logging.level", "")
}
