/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Export        ExportConfig  `yaml:"export"`
	Devices       DevicesConfig `yaml:"devices"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// EditorConfig holds composition defaults.
type EditorConfig struct {
	HistoryCapacity int     `yaml:"history_capacity"`
	DefaultPlatform string  `yaml:"default_platform"` // ios | android
	FrameColor      string  `yaml:"frame_color"`      // black | white
	Snapping        bool    `yaml:"snapping"`
	SnapThreshold   float64 `yaml:"snap_threshold"`
}

// StorageConfig selects where projects live. The sqlite driver keeps projects as
// manifest directories with a per-project index; postgres stores them remotely.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	// DSN is used by the postgres driver. The password part may be omitted and
	// is then read from the OS keychain.
	DSN string `yaml:"dsn"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type ExportConfig struct {
	Format  string `yaml:"format"` // png | jpg
	Scale   int    `yaml:"scale"`  // 1 | 2 | 3
	Quality int    `yaml:"quality"`
}

type DevicesConfig struct {
	// CatalogFile is an optional YAML file with extra or overriding device descriptors.
	CatalogFile string `yaml:"catalog_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Editor:        EditorConfig{HistoryCapacity: 30, DefaultPlatform: "ios", FrameColor: "black", Snapping: false, SnapThreshold: 8},
		Storage:       StorageConfig{Driver: "sqlite"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Export:        ExportConfig{Format: "png", Scale: 2, Quality: 92},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "SHOTFRAME_BACKEND_URL"
	EnvBackendTimeoutMs = "SHOTFRAME_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "SHOTFRAME_TLS_INSECURE"
	EnvTelemetryOptIn   = "SHOTFRAME_TELEMETRY_OPT_IN"
	EnvHistoryCapacity  = "SHOTFRAME_HISTORY_CAPACITY"
	EnvDefaultPlatform  = "SHOTFRAME_PLATFORM"
	EnvStorageDriver    = "SHOTFRAME_STORAGE_DRIVER"
	EnvPGDSN            = "SHOTFRAME_PG_DSN"
	EnvDeviceCatalog    = "SHOTFRAME_DEVICE_CATALOG"
	EnvExportScale      = "SHOTFRAME_EXPORT_SCALE"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SHOTFRAME_LOG_LEVEL"
	EnvLogFormat = "SHOTFRAME_LOG_FORMAT"
	EnvLogSource = "SHOTFRAME_LOG_SOURCE"
	EnvLogFile   = "SHOTFRAME_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "shotframe"
	keyringToken   = "backend_token"
	keyringPGPass  = "postgres_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore swaps the keyring backend and returns a restore func.
func SetTokenStore(ts TokenStore) func() {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "shotframe")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "shotframe")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "shotframe")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "shotframe")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, token)
}

// SaveTo is Save with an explicit config path.
func SaveTo(path string, cfg AppConfig, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// PostgresPassword returns the database password kept in the keychain, or "".
func PostgresPassword() string {
	v, err := tokenStore.Get(keyringService, keyringPGPass)
	if err != nil {
		return ""
	}
	return v
}

// SetPostgresPassword stores the database password in the keychain. An empty
// value deletes it.
func SetPostgresPassword(pw string) error {
	if pw == "" {
		return tokenStore.Delete(keyringService, keyringPGPass)
	}
	return tokenStore.Set(keyringService, keyringPGPass, pw)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Editor.HistoryCapacity > 0 {
		dst.Editor.HistoryCapacity = src.Editor.HistoryCapacity
	}
	if p := strings.ToLower(strings.TrimSpace(src.Editor.DefaultPlatform)); p != "" {
		dst.Editor.DefaultPlatform = p
	}
	if c := strings.ToLower(strings.TrimSpace(src.Editor.FrameColor)); c != "" {
		dst.Editor.FrameColor = c
	}
	dst.Editor.Snapping = src.Editor.Snapping
	if src.Editor.SnapThreshold > 0 {
		dst.Editor.SnapThreshold = src.Editor.SnapThreshold
	}
	if d := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); d != "" {
		dst.Storage.Driver = d
	}
	if strings.TrimSpace(src.Storage.DSN) != "" {
		dst.Storage.DSN = strings.TrimSpace(src.Storage.DSN)
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if f := strings.ToLower(strings.TrimSpace(src.Export.Format)); f != "" {
		dst.Export.Format = f
	}
	if src.Export.Scale > 0 {
		dst.Export.Scale = src.Export.Scale
	}
	if src.Export.Quality > 0 {
		dst.Export.Quality = src.Export.Quality
	}
	if strings.TrimSpace(src.Devices.CatalogFile) != "" {
		dst.Devices.CatalogFile = strings.TrimSpace(src.Devices.CatalogFile)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryCapacity)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultPlatform)); v != "" {
		cfg.Editor.DefaultPlatform = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDeviceCatalog)); v != "" {
		cfg.Devices.CatalogFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportScale)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.Scale = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"backend.base_url":         EnvBackendURL,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"backend.tls_insecure":     EnvBackendTLSInsec,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"editor.history_capacity":  EnvHistoryCapacity,
	"editor.default_platform":  EnvDefaultPlatform,
	"storage.driver":           EnvStorageDriver,
	"storage.dsn":              EnvPGDSN,
	"devices.catalog_file":     EnvDeviceCatalog,
	"export.scale":             EnvExportScale,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// EffectiveTimeout returns the backend timeout as a duration-like milliseconds string for http.Client.
func (b BackendConfig) EffectiveTimeout() string {
	if b.TimeoutMs <= 0 {
		return fmt.Sprintf("%dms", Defaults().Backend.TimeoutMs)
	}
	return fmt.Sprintf("%dms", b.TimeoutMs)
}
