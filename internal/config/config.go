package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes a shared ICS calendar (e.g. a recruiting team
// calendar) scanned for interviews.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and cache keys.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// GoogleConfig holds the OAuth client registered in the Google console.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	RedirectURL  string `yaml:"redirect_url" json:"redirect_url"`
	// CalendarID is the calendar read for interviews; "primary" by default.
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
	// MaxResults caps a single events.list page.
	MaxResults int64 `yaml:"max_results" json:"max_results"`
}

// SessionConfig controls the login cookie and its Redis-backed record.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" json:"cookie_name"`
	TTLHours   int    `yaml:"ttl_hours" json:"ttl_hours"`
	// Secure sets the Secure attribute on cookies. Disable only for local
	// plain-HTTP development.
	Secure bool `yaml:"secure" json:"secure"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used when expanding ICS recurrences.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LookbackMonths is how far back calendar events are scanned.
	LookbackMonths int `yaml:"lookback_months" json:"lookback_months"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for the shared feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// PostLoginPath is where the OAuth callback redirects on success.
	PostLoginPath string `yaml:"post_login_path" json:"post_login_path"`

	DatabaseURL string `yaml:"database_url" json:"-"`
	RedisURL    string `yaml:"redis_url" json:"-"`

	// CacheDir stores ICS bodies and their ETag metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Google  GoogleConfig  `yaml:"google" json:"google"`
	Session SessionConfig `yaml:"session" json:"session"`

	// Feeds is the list of shared ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultLookbackMonths = 6
	defaultRefreshCron    = "*/15 * * * *"
	defaultPostLoginPath  = "/dashboard"
	defaultCacheDir       = "/var/lib/prepwise/ics-cache"
	defaultCalendarID     = "primary"
	defaultMaxResults     = 250
	defaultCookieName     = "prepwise_session"
	defaultSessionTTL     = 24 * 7
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		LogLevel:       "info",
		LookbackMonths: defaultLookbackMonths,
		RefreshCron:    defaultRefreshCron,
		PostLoginPath:  defaultPostLoginPath,
		CacheDir:       defaultCacheDir,
		Google: GoogleConfig{
			CalendarID: defaultCalendarID,
			MaxResults: defaultMaxResults,
		},
		Session: SessionConfig{
			CookieName: defaultCookieName,
			TTLHours:   defaultSessionTTL,
			Secure:     true,
		},
		Feeds: []FeedConfig{},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LookbackMonths <= 0 {
		c.LookbackMonths = defaultLookbackMonths
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.PostLoginPath == "" {
		c.PostLoginPath = defaultPostLoginPath
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = defaultCalendarID
	}
	// The calendar API rejects page sizes above 2500.
	if c.Google.MaxResults <= 0 || c.Google.MaxResults > 2500 {
		c.Google.MaxResults = defaultMaxResults
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = defaultCookieName
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = defaultSessionTTL
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// ApplyEnv overrides secrets and connection strings from the environment,
// so they never need to live in the YAML file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	set(&c.Google.RedirectURL, "GOOGLE_REDIRECT_URI")
	set(&c.DatabaseURL, "DATABASE_URL")
	set(&c.RedisURL, "REDIS_URL")
	set(&c.Listen, "PREPWISE_LISTEN")
}

// Validate reports settings without which the service cannot start.
func (c *Config) Validate() error {
	var errs []error
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("google client_id and client_secret are required"))
	}
	if c.Google.RedirectURL == "" {
		errs = append(errs, errors.New("google redirect_url is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("redis_url is required"))
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
//
// Environment overrides are applied by the caller via ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".prepwise-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
