package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:       "/tmp/test-data",
		LogLevel:      "debug",
		MaxConcurrent: 4,
	}
	original.HTTP.Enabled = true
	original.HTTP.Listen = "127.0.0.1:9999"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.AllowedUsers = []int64{42, 7}
	original.Delivery.URL = "http://localhost:3000/commands"
	original.Delivery.Token = "delivery-secret"

	// Save
	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	// Reload
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Compare key fields
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.MaxConcurrent != original.MaxConcurrent {
		t.Errorf("MaxConcurrent mismatch: %v != %v", loaded.MaxConcurrent, original.MaxConcurrent)
	}
	if loaded.HTTP.Listen != original.HTTP.Listen {
		t.Errorf("HTTP.Listen mismatch: %v != %v", loaded.HTTP.Listen, original.HTTP.Listen)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
	if len(loaded.Telegram.AllowedUsers) != 2 || loaded.Telegram.AllowedUsers[0] != 42 {
		t.Errorf("Telegram.AllowedUsers mismatch: %v", loaded.Telegram.AllowedUsers)
	}
	if loaded.Delivery.URL != original.Delivery.URL {
		t.Errorf("Delivery.URL mismatch: %v != %v", loaded.Delivery.URL, original.Delivery.URL)
	}
	if loaded.Delivery.Token != original.Delivery.Token {
		t.Errorf("Delivery.Token mismatch: %v != %v", loaded.Delivery.Token, original.Delivery.Token)
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxConcurrent != 2 || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Listen == "" {
		t.Errorf("expected HTTP enabled with a listen address, got %+v", cfg.HTTP)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults should be written to disk: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("VIBECODE_DATA_DIR", "/env/data")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-bot")
	t.Setenv("VIBECODE_DELIVERY_URL", "http://env/commands")
	t.Setenv("VIBECODE_DELIVERY_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/env/data" {
		t.Errorf("expected env data dir, got %s", cfg.DataDir)
	}
	if cfg.Telegram.Token != "env-bot" {
		t.Errorf("expected env telegram token, got %s", cfg.Telegram.Token)
	}
	if cfg.Delivery.URL != "http://env/commands" || cfg.Delivery.Token != "env-token" {
		t.Errorf("expected env delivery settings, got %+v", cfg.Delivery)
	}

	// Env values are not persisted.
	v, err := GetValue(path, "telegram.token")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("expected empty stored token, got %v", v)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		DataDir:       "/tmp/test",
		LogLevel:      "debug",
		MaxConcurrent: 3,
	}
	cfg.HTTP.Listen = ":8080"

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}
	// JSON numbers are float64
	if m["max_concurrent"] != float64(3) {
		t.Errorf("expected max_concurrent=3, got %v", m["max_concurrent"])
	}

	httpCfg, ok := m["http"].(map[string]any)
	if !ok {
		t.Fatalf("expected http to be map, got %T", m["http"])
	}
	if httpCfg["listen"] != ":8080" {
		t.Errorf("expected http.listen=:8080, got %v", httpCfg["listen"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Telegram.Token = "bot-token-abcd"
	cfg.Delivery.Token = "delivery-key-1234"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be unmasked
	if flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("expected unmasked telegram.token, got %v", flat["telegram.token"])
	}
	if flat["delivery.token"] != "delivery-key-1234" {
		t.Errorf("expected unmasked delivery.token, got %v", flat["delivery.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Telegram.Token = "bot-token-abcd"
	cfg.Delivery.Token = "delivery-key-1234"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be masked
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}
	if flat["delivery.token"] != "***1234" {
		t.Errorf("expected masked delivery.token=***1234, got %v", flat["delivery.token"])
	}

	// Non-secrets should be unchanged
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{
		LogLevel:      "debug",
		MaxConcurrent: 8,
	}
	cfg.HTTP.Listen = ":8080"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "http.listen")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != ":8080" {
		t.Errorf("expected http.listen=:8080, got %v", v)
	}

	v, err = GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected max_concurrent=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Delivery.URL = "http://localhost:3000"
	writeTestConfig(t, path, cfg)

	// Set a string value
	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	// Verify it was set
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}

	// Verify other values are preserved
	v, err = GetValue(path, "delivery.url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "http://localhost:3000" {
		t.Errorf("expected delivery.url preserved, got %v", v)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{MaxConcurrent: 2}
	writeTestConfig(t, path, cfg)

	// Set a numeric value (JSON parseable)
	if err := SetValue(path, "max_concurrent", "16"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(16) {
		t.Errorf("expected max_concurrent=16, got %v (%T)", v, v)
	}
}

func TestSetValue_Boolean(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a boolean value (JSON parseable)
	if err := SetValue(path, "some_flag", "true"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "some_flag")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != true {
		t.Errorf("expected some_flag=true, got %v (%T)", v, v)
	}
}

func TestSetValue_Array(t *testing.T) {
	path := tempConfigPath(t)

	writeTestConfig(t, path, &Config{})

	if err := SetValue(path, "telegram.allowed_users", "[42, 7]"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Telegram.AllowedUsers) != 2 || cfg.Telegram.AllowedUsers[1] != 7 {
		t.Errorf("expected allowed users [42 7], got %v", cfg.Telegram.AllowedUsers)
	}
}

func TestSetValue_NestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.HTTP.Listen = "127.0.0.1:8787"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "http.listen", ":9000"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "http.listen")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != ":9000" {
		t.Errorf("expected http.listen=:9000, got %v", v)
	}
}

func TestSetValue_RejectsWrongType(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{MaxConcurrent: 2})

	if err := SetValue(path, "max_concurrent", "lots"); err == nil {
		t.Fatal("expected error setting a string into a numeric field")
	}

	v, err := GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(2) {
		t.Errorf("rejected value should not be written, got %v", v)
	}
}

func TestSetValue_NewNestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a new nested key that doesn't exist in Config struct
	if err := SetValue(path, "custom.setting", "value"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "custom.setting")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "value" {
		t.Errorf("expected custom.setting=value, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	// GetValue calls Load, which creates the file if it doesn't exist.
	// But if the directory doesn't exist, it should still work because
	// Load creates it. Let's test with a valid temp dir.
	path := tempConfigPath(t)

	// File doesn't exist yet; Load will create it with defaults
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	// Default log_level is "info"
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	cfg := &Config{LogLevel: "warn"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}
