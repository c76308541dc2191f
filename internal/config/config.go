package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// Values come from env (optionally seeded from a .env file by cmd/api).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	NATS   NATSConfig
	VAPI   VAPIConfig
	Notify NotifyConfig
	Stats  StatsConfig
	Sync   SyncConfig
	LLM    LLMConfig
}

type AppConfig struct {
	Env  string
	Port int

	// DefaultLocale is used for display fallbacks when a request carries no usable Accept-Language.
	DefaultLocale string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type NATSConfig struct {
	// URL is optional; without it realtime falls back to the in-process hub.
	URL string
}

type VAPIConfig struct {
	BaseURL string
	// APIKey is the explicit runtime key. When empty, the persisted override and then
	// DefaultAPIKey are used.
	APIKey        string
	DefaultAPIKey string
	Timeout       time.Duration
}

type NotifyConfig struct {
	PickupURLs []string
	Timeout    time.Duration
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint used to
// rate calls. An empty BaseURL keeps rating on the keyword heuristic.
type LLMConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

func (l LLMConfig) Enabled() bool { return l.BaseURL != "" }

type StatsConfig struct {
	CacheTTL    time.Duration
	DurationCap int
}

type SyncConfig struct {
	LockTTL  time.Duration
	Lookback time.Duration
}

const (
	defaultVAPIBaseURL = "https://api.vapi.ai"
	defaultLLMModel    = "gpt-4o-mini"
	defaultPickupURLs  = "https://n8n.goreview.fr/webhook-test/pickup,https://n8n.goreview.fr/webhook/pickup"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.DefaultLocale = strings.TrimSpace(os.Getenv("APP_DEFAULT_LOCALE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")

	c.NATS.URL = strings.TrimSpace(os.Getenv("NATS_URL"))

	c.VAPI.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))
	c.VAPI.APIKey = strings.TrimSpace(os.Getenv("VAPI_API_KEY"))
	c.VAPI.DefaultAPIKey = strings.TrimSpace(os.Getenv("VAPI_DEFAULT_API_KEY"))
	c.VAPI.Timeout = optionalDuration("VAPI_TIMEOUT")

	c.Notify.PickupURLs = splitList(os.Getenv("PICKUP_WEBHOOK_URLS"))
	c.Notify.Timeout = optionalDuration("PICKUP_WEBHOOK_TIMEOUT")

	c.Stats.CacheTTL = optionalDuration("STATS_CACHE_TTL")
	if v := strings.TrimSpace(os.Getenv("STATS_DURATION_CAP")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("STATS_DURATION_CAP must be an integer, got %q", v))
		}
		c.Stats.DurationCap = n
	}

	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("LLM_BASE_URL")), "/")
	c.LLM.APIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	c.LLM.Model = strings.TrimSpace(os.Getenv("LLM_MODEL"))
	c.LLM.Timeout = optionalDuration("LLM_TIMEOUT")
	c.LLM.CacheTTL = optionalDuration("LLM_RATING_CACHE_TTL")

	c.Sync.LockTTL = optionalDuration("SYNC_LOCK_TTL")
	c.Sync.Lookback = optionalDuration("SYNC_LOOKBACK")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults for optional ones.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	switch c.App.DefaultLocale {
	case "":
		c.App.DefaultLocale = "fr"
	case "en", "fr", "de":
	default:
		errs = append(errs, fmt.Errorf("APP_DEFAULT_LOCALE must be one of en, fr, de, got %q", c.App.DefaultLocale))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}

	if c.VAPI.BaseURL == "" {
		c.VAPI.BaseURL = defaultVAPIBaseURL
	}
	if c.VAPI.Timeout <= 0 {
		c.VAPI.Timeout = 15 * time.Second
	}

	if len(c.Notify.PickupURLs) == 0 {
		c.Notify.PickupURLs = splitList(defaultPickupURLs)
	}
	for _, u := range c.Notify.PickupURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Errorf("PICKUP_WEBHOOK_URLS entries must be http(s) URLs, got %q", u))
		}
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 5 * time.Second
	}

	if c.Stats.CacheTTL <= 0 {
		c.Stats.CacheTTL = 30 * time.Second
	}
	if c.Stats.CacheTTL > 10*time.Minute {
		errs = append(errs, fmt.Errorf("STATS_CACHE_TTL must be at most 10m, got %s", c.Stats.CacheTTL))
	}
	if c.Stats.DurationCap <= 0 {
		c.Stats.DurationCap = 10000
	}

	if c.LLM.Enabled() {
		if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
			errs = append(errs, fmt.Errorf("LLM_BASE_URL must be an http(s) URL, got %q", c.LLM.BaseURL))
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultLLMModel
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.CacheTTL <= 0 {
		c.LLM.CacheTTL = 24 * time.Hour
	}

	if c.Sync.LockTTL <= 0 {
		c.Sync.LockTTL = 2 * time.Minute
	}
	if c.Sync.Lookback <= 0 {
		c.Sync.Lookback = 365 * 24 * time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optionalDuration returns 0 for unset or unparsable values; Validate applies defaults.
func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
