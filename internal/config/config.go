package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL    = "https://caldav.yandex.ru"
	DefaultTimeout      = 30 * time.Second
	DefaultFailureLog   = "log.txt"
	DefaultSchedule     = "0 9 * * *"
	DefaultListen       = "127.0.0.1:8080"
	DefaultTitle        = "Запланированные мероприятия в твоем календаре"
	DefaultThumbnailURL = "https://api.slack.com/img/blocks/bkb_template_images/notifications.png"
)

// Account is one calendar login paired with the webhook that receives its
// summary.
type Account struct {
	// Name labels the account in logs, reports and the failure log.
	Name string `yaml:"name" json:"name"`
	// ServerURL is the CalDAV endpoint used for discovery.
	ServerURL string `yaml:"server_url" json:"server_url"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	// Webhook is the incoming-webhook URL the message is posted to.
	Webhook string `yaml:"webhook" json:"-"`
	// Calendar selects a calendar by display name or path. Empty means
	// the first calendar the server lists.
	Calendar string `yaml:"calendar,omitempty" json:"calendar,omitempty"`
	// ICSURL switches the account to a read-only ICS subscription
	// instead of CalDAV.
	ICSURL string `yaml:"ics_url,omitempty" json:"-"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timeout bounds every calendar and webhook request.
	Timeout time.Duration `yaml:"timeout"`

	// FailureLog is the append-only file receiving one line per failed
	// account run.
	FailureLog string `yaml:"failure_log"`

	// Schedule is a cron expression used by `serve`.
	Schedule string `yaml:"schedule"`

	// Listen is the status server address used by `serve`. Empty
	// disables the server.
	Listen string `yaml:"listen"`

	// Title is the header line of every message.
	Title string `yaml:"title"`

	// ThumbnailURL is the accessory image shown next to each event.
	ThumbnailURL string `yaml:"thumbnail_url"`

	// BasicAuth, if non-nil, protects the status server except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`

	// Accounts are processed in this order.
	Accounts []Account `yaml:"accounts"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		FailureLog:   DefaultFailureLog,
		Schedule:     DefaultSchedule,
		Listen:       DefaultListen,
		Title:        DefaultTitle,
		ThumbnailURL: DefaultThumbnailURL,
		Accounts:     []Account{},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.FailureLog == "" {
		c.FailureLog = DefaultFailureLog
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.ThumbnailURL == "" {
		c.ThumbnailURL = DefaultThumbnailURL
	}
	if c.Accounts == nil {
		c.Accounts = []Account{}
	}
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if a.ServerURL == "" && a.ICSURL == "" {
			a.ServerURL = DefaultServerURL
		}
		if a.Name == "" {
			if a.Username != "" {
				a.Name = a.Username
			} else {
				a.Name = fmt.Sprintf("account-%d", i+1)
			}
		}
	}
}

// Validate reports the first account that cannot possibly run.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.Webhook == "" {
			return fmt.Errorf("account %d (%s): webhook is required", i+1, a.Name)
		}
		if a.ICSURL == "" && (a.Username == "" || a.Password == "") {
			return fmt.Errorf("account %d (%s): username and password are required unless ics_url is set", i+1, a.Name)
		}
		key := strings.ToLower(a.Name)
		if seen[key] {
			return fmt.Errorf("account %d: duplicate name %q", i+1, a.Name)
		}
		seen[key] = true
	}
	return nil
}

// Account returns the account with the given name (case-insensitive).
func (c *Config) Account(name string) (Account, bool) {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Account{}, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The file is written atomically via a temp file + rename and ends up with
// 0600 permissions, since it carries calendar passwords.
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

	tmp, err := os.CreateTemp(dir, ".calnotify-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
