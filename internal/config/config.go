package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Secrets may be supplied through the environment instead.

const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultTimezone       = "Europe/London"
	DefaultLookAheadWeeks = 3
	DefaultRefreshCron    = "0 * * * *"
	DefaultDataDir        = "./var"
	DefaultCalDAVURL      = "https://caldav.icloud.com"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// CalDAVConfig points at the account holding the household calendar.
type CalDAVConfig struct {
	URL      string `yaml:"url" json:"url"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	// Calendar selects the household calendar: a substring of its collection
	// href (iCloud uses opaque ids) or its exact display name.
	Calendar string `yaml:"calendar" json:"calendar"`
}

// Enabled reports whether enough is configured to talk to a CalDAV server.
func (c CalDAVConfig) Enabled() bool {
	return c.URL != "" && c.Username != "" && c.Calendar != ""
}

// MemberConfig is one household member and the event titles that mean they are away.
type MemberConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Role is "adult" or "child".
	Role string `yaml:"role" json:"role"`
	// AwayPatterns are regular expressions matched case-insensitively
	// against the whole event title. Any match marks the member away.
	AwayPatterns []string `yaml:"away_patterns" json:"away_patterns"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that defines "a day" for presence.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DataDir holds the presence snapshot, the SQLite database and the ICS cache.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LookAheadWeeks is the default presence forecast window.
	LookAheadWeeks int `yaml:"look_ahead_weeks" json:"look_ahead_weeks"`

	// RefreshCron is a cron-style schedule string (e.g. "0 * * * *")
	// used for periodic presence refresh. Empty disables the schedule.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	CalDAV CalDAVConfig `yaml:"caldav" json:"caldav"`

	// ICS is used instead of CalDAV when no CalDAV calendar is configured.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Household []MemberConfig `yaml:"household" json:"household"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides are read on top of the YAML file. Every name takes the
// HOMEPLAN_ prefix; only the CALDAV_* names are also read unprefixed, for
// deployments that predate the prefix.
type envOverrides struct {
	Listen         string `split_words:"true"`
	LogLevel       string `split_words:"true"`
	DataDir        string `split_words:"true"`
	CalDAVURL      string `envconfig:"CALDAV_URL"`
	CalDAVUser     string `envconfig:"CALDAV_USER"`
	CalDAVPassword string `envconfig:"CALDAV_PASSWORD"`
	CalDAVCalendar string `envconfig:"CALDAV_CALENDAR"`
}

// DefaultHousehold is the household the service was first deployed for.
func DefaultHousehold() []MemberConfig {
	return []MemberConfig{
		{
			ID: "rob", Name: "Rob", Role: "adult",
			AwayPatterns: []string{
				`\brob\b.*\b(office|cheltenham|cinderford|away|trip)\b`,
				`\b(office|cheltenham|cinderford)\b.*\brob\b`,
				`^office$`,
				`^cheltenham$`,
				`^rob away`,
				`^rob in `,
			},
		},
		{
			ID: "aimee", Name: "Aimee", Role: "adult",
			AwayPatterns: []string{
				`\baimee\b.*\b(andover|away|trip)\b`,
				`\bandover\b.*\baimee\b`,
				`^andover$`,
				`^aimee away`,
				`^aimee in `,
			},
		},
		{
			ID: "dexter", Name: "Dexter", Role: "child",
			AwayPatterns: []string{
				`\bdexter\b.*\b(away|sleepover|trip|camp)\b`,
				`\b(sleepover|trip|camp)\b.*\bdexter\b`,
				`\bdexter at `,
				`^dexter away`,
			},
		},
		{
			ID: "logan", Name: "Logan", Role: "child",
			AwayPatterns: []string{
				`\blogan\b.*\b(away|sleepover|trip|camp)\b`,
				`\b(sleepover|trip|camp)\b.*\blogan\b`,
				`\blogan at `,
				`^logan away`,
			},
		},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		Timezone:       DefaultTimezone,
		LogLevel:       "INFO",
		DataDir:        DefaultDataDir,
		LookAheadWeeks: DefaultLookAheadWeeks,
		RefreshCron:    DefaultRefreshCron,
		CalDAV:         CalDAVConfig{URL: DefaultCalDAVURL},
		ICS:            []ICSConfig{},
		Household:      DefaultHousehold(),
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.LookAheadWeeks <= 0 {
		c.LookAheadWeeks = DefaultLookAheadWeeks
	}
	if c.CalDAV.URL == "" {
		c.CalDAV.URL = DefaultCalDAVURL
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if len(c.Household) == 0 {
		c.Household = DefaultHousehold()
	}
	for i := range c.Household {
		if c.Household[i].Name == "" {
			c.Household[i].Name = c.Household[i].ID
		}
		if c.Household[i].Role == "" {
			c.Household[i].Role = "adult"
		}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Household))
	for _, m := range c.Household {
		if m.ID == "" {
			return errors.New("household member with empty id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate household member %q", m.ID)
		}
		seen[m.ID] = true
		if m.Role != "adult" && m.Role != "child" {
			return fmt.Errorf("member %q: role must be adult or child, got %q", m.ID, m.Role)
		}
		for _, p := range m.AwayPatterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("member %q: bad away pattern %q: %w", m.ID, p, err)
			}
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("HOMEPLAN", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.Listen != "" {
		c.Listen = env.Listen
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.DataDir != "" {
		c.DataDir = env.DataDir
	}
	if env.CalDAVURL != "" {
		c.CalDAV.URL = env.CalDAVURL
	}
	if env.CalDAVUser != "" {
		c.CalDAV.Username = env.CalDAVUser
	}
	if env.CalDAVPassword != "" {
		c.CalDAV.Password = env.CalDAVPassword
	}
	if env.CalDAVCalendar != "" {
		c.CalDAV.Calendar = env.CalDAVCalendar
	}
	return nil
}

// PresencePath is where the presence snapshot lives.
func (c *Config) PresencePath() string {
	return filepath.Join(c.DataDir, "presence.json")
}

// DBPath is the SQLite database holding user recipes and the meal plan.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "homeplan.db")
}

// ICSCacheDir is the disk cache for subscription feeds.
func (c *Config) ICSCacheDir() string {
	return filepath.Join(c.DataDir, "ics-cache")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - Environment overrides are applied last, and never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".homeplan-config-*.tmp")
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers observe either the old file or the new one, never a mix.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
