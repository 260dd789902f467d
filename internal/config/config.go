package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	HTTP          struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Telegram struct {
		Token        string  `json:"token"`
		AllowedUsers []int64 `json:"allowed_users"`
	} `json:"telegram"`
	Delivery struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	} `json:"delivery"`
}

// DefaultPath is where the config lives unless --config says otherwise.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".vibecode", "config.json")
}

func defaults() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".vibecode"),
		LogLevel:      "info",
		MaxConcurrent: 2,
	}
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:8787"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if dir := os.Getenv("VIBECODE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if url := os.Getenv("VIBECODE_DELIVERY_URL"); url != "" {
		cfg.Delivery.URL = url
	}
	if token := os.Getenv("VIBECODE_DELIVERY_TOKEN"); token != "" {
		cfg.Delivery.Token = token
	}

	return cfg, nil
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	return writeFile(path, cfg)
}

func writeFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns every setting as a flat dot-keyed map, with secrets
// masked when mask is set.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return m, nil
}

// GetValue returns the value stored in the config file for a dot-separated
// key. Keys the Config struct does not know about are readable too.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	m, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(m)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores raw under a dot-separated key in an existing config file.
// raw is parsed as JSON when possible (numbers, booleans, arrays) and kept
// as a string otherwise.
func SetValue(path, key, raw string) error {
	m, err := readRaw(path)
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	flat := Flatten(m)
	flat[key] = value
	nested := Unflatten(flat)

	// Reject values the typed config cannot hold.
	data, err := json.Marshal(nested)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := json.Unmarshal(data, defaults()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return writeFile(path, nested)
}
