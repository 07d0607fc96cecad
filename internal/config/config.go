package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "kanban.db"
	DefaultLogFile        = "kanban.log"
	DefaultListenAddr     = ":5000"

	// DefaultUserID is the partition used when none is configured.
	DefaultUserID = "c4a0f1d2-5b6e-4f3a-8e9d-0a1b2c3d4e5f"

	appDirName = "kanban"
	envConfig  = "KANBAN_CONFIG"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Add       string `toml:"add"`
	Edit      string `toml:"edit"`
	Delete    string `toml:"delete"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	LaneLeft  string `toml:"lane_left"`
	LaneRight string `toml:"lane_right"`
	MoveLeft  string `toml:"move_left"`
	MoveRight string `toml:"move_right"`
	MoveUp    string `toml:"move_up"`
	MoveDown  string `toml:"move_down"`
	Compact   string `toml:"compact"`
	Refresh   string `toml:"refresh"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
}

type Breaker struct {
	MaxRequests         uint32   `toml:"max_requests"`
	Interval            Duration `toml:"interval"`
	Timeout             Duration `toml:"timeout"`
	ConsecutiveFailures uint32   `toml:"consecutive_failures"`
}

type Config struct {
	APIURL         string   `toml:"api_url"`
	UserID         string   `toml:"user_id"`
	DBPath         string   `toml:"db_path"`
	RequestTimeout Duration `toml:"request_timeout"`
	LogFile        string   `toml:"log_file"`
	LogLevel       string   `toml:"log_level"`
	ToastTTL       Duration `toml:"toast_ttl"`
	ListenAddr     string   `toml:"listen_addr"`
	Breaker        Breaker  `toml:"breaker"`
	Keys           Keymap   `toml:"keys"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// ResolveConfigPath returns $KANBAN_CONFIG when set, otherwise config.toml in
// the user config directory, falling back to the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if _, err := uuid.Parse(cfg.UserID); err != nil {
		return cfg, fmt.Errorf("user_id %q is not a UUID: %w", cfg.UserID, err)
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := defaultConfig()
	if c.UserID == "" {
		c.UserID = def.UserID
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ToastTTL <= 0 {
		c.ToastTTL = def.ToastTTL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.Keys == (Keymap{}) {
		c.Keys = def.Keys
	}
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		UserID:         DefaultUserID,
		DBPath:         DefaultDBName,
		RequestTimeout: Duration(10 * time.Second),
		LogFile:        DefaultLogFile,
		LogLevel:       "info",
		ToastTTL:       Duration(4 * time.Second),
		ListenAddr:     DefaultListenAddr,
		Breaker: Breaker{
			MaxRequests:         1,
			Interval:            Duration(30 * time.Second),
			Timeout:             Duration(15 * time.Second),
			ConsecutiveFailures: 5,
		},
		Keys: Keymap{
			Quit:      "q",
			Add:       "a",
			Edit:      "e",
			Delete:    "d",
			Up:        "k",
			Down:      "j",
			LaneLeft:  "h",
			LaneRight: "l",
			MoveLeft:  "H",
			MoveRight: "L",
			MoveUp:    "K",
			MoveDown:  "J",
			Compact:   "c",
			Refresh:   "r",
			Confirm:   "enter",
			Cancel:    "esc",
		},
	}
}
