package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MatrixConfig describes the messaging side: the homeserver, the bot
// account, and the room watch-list.
type MatrixConfig struct {
	Homeserver string `yaml:"homeserver" json:"homeserver"`
	Username   string `yaml:"username" json:"username"`
	// Password is only needed for the first login; it can be omitted from
	// the file and supplied via MATRIX_BOT_PASSWORD instead.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	// Rooms is the watch-list of room IDs the bot reacts in and posts to.
	Rooms []string `yaml:"rooms" json:"rooms"`
	// DataDir holds the persisted session record and client store.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// CalDAVConfig describes the calendar collection to query.
type CalDAVConfig struct {
	URL      string `yaml:"url" json:"url"`
	Username string `yaml:"username" json:"username"`
	// Password can be omitted from the file and supplied via CALDAV_PASSWORD.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// DigestConfig controls the fetch window and the weekly posting schedule.
type DigestConfig struct {
	// WindowDays is how many days ahead each digest looks.
	WindowDays int `yaml:"window_days" json:"window_days"`
	// WeeklyCron is a standard 5-field cron spec for the scheduled digest.
	WeeklyCron string `yaml:"weekly_cron" json:"weekly_cron"`
	// RetryFloorSeconds is the minimum delay between failed sync attempts.
	RetryFloorSeconds int `yaml:"retry_floor_seconds" json:"retry_floor_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	Matrix MatrixConfig `yaml:"matrix" json:"matrix"`
	CalDAV CalDAVConfig `yaml:"caldav" json:"caldav"`
	Digest DigestConfig `yaml:"digest" json:"digest"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Matrix: MatrixConfig{
			Rooms:   []string{},
			DataDir: "./var/calbot",
		},
		Digest: DigestConfig{
			WindowDays:        7,
			WeeklyCron:        "0 9 * * 0",
			RetryFloorSeconds: 5,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Matrix.DataDir == "" {
		c.Matrix.DataDir = "./var/calbot"
	}
	if c.Matrix.Rooms == nil {
		c.Matrix.Rooms = []string{}
	}
	if c.Digest.WindowDays <= 0 {
		c.Digest.WindowDays = 7
	}
	if c.Digest.WeeklyCron == "" {
		c.Digest.WeeklyCron = "0 9 * * 0"
	}
	if c.Digest.RetryFloorSeconds <= 0 {
		c.Digest.RetryFloorSeconds = 5
	}
}

// ApplyEnv overrides config values from the environment. Secrets live here
// so the YAML file never has to contain them; the room list override keeps
// compatibility with comma-separated MATRIX_ROOM_IDS deployments.
func (c *Config) ApplyEnv() {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setIfPresent(&c.Matrix.Homeserver, "MATRIX_SERVER_URL")
	setIfPresent(&c.Matrix.Username, "MATRIX_BOT_USERNAME")
	setIfPresent(&c.Matrix.Password, "MATRIX_BOT_PASSWORD")
	setIfPresent(&c.CalDAV.URL, "CALDAV_SERVER_URL")
	setIfPresent(&c.CalDAV.Username, "CALDAV_USERNAME")
	setIfPresent(&c.CalDAV.Password, "CALDAV_PASSWORD")

	if v := os.Getenv("MATRIX_ROOM_IDS"); v != "" {
		rooms := make([]string, 0)
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				rooms = append(rooms, id)
			}
		}
		c.Matrix.Rooms = rooms
	}
}

// Validate reports the first missing mandatory value.
func (c *Config) Validate() error {
	switch {
	case c.Matrix.Homeserver == "":
		return errors.New("matrix.homeserver must be set")
	case c.Matrix.Username == "":
		return errors.New("matrix.username must be set")
	case len(c.Matrix.Rooms) == 0:
		return errors.New("matrix.rooms must list at least one room")
	case c.CalDAV.URL == "":
		return errors.New("caldav.url must be set")
	}
	return nil
}

// Window is the digest fetch window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Digest.WindowDays) * 24 * time.Hour
}

// RetryFloor is the minimum inter-attempt delay for failed syncs.
func (c *Config) RetryFloor() time.Duration {
	return time.Duration(c.Digest.RetryFloorSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled and normalized.
//
// Environment overrides are not applied here; callers decide when.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".calbot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up the temp file on error.
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

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
