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
	"time"

	"gopkg.in/yaml.v3"

	applog "playscript/internal/log"
)

// AppConfig is the user-editable configuration persisted as YAML.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Paths         PathsConfig    `yaml:"paths"`
	Logging       LoggingConfig  `yaml:"logging"`
	Playback      PlaybackConfig `yaml:"playback"`
	Backend       BackendConfig  `yaml:"backend"`
}

// PathsConfig holds the default locations used when the CLI gets no arguments.
type PathsConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Index  string `yaml:"index"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type PlaybackConfig struct {
	Language       string `yaml:"language"`
	WordsPerMinute int    `yaml:"words_per_minute"`
}

type BackendConfig struct {
	DSN       string `yaml:"dsn"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Paths: PathsConfig{
			Input:  filepath.Join("src", "assets", "fools.md"),
			Output: filepath.Join("src", "assets", "fools.json"),
			Index:  filepath.Join(".playscript", "index.sqlite"),
		},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Playback: PlaybackConfig{Language: "ru", WordsPerMinute: 160},
		Backend:  BackendConfig{TimeoutMs: 10000},
	}
}

// Env var names used as overrides.
const (
	EnvInput    = "PLS_INPUT"
	EnvOutput   = "PLS_OUTPUT"
	EnvIndex    = "PLS_INDEX"
	EnvLanguage = "PLS_LANGUAGE"
	EnvWPM      = "PLS_WPM"
	EnvPGDSN    = "PLS_PG_DSN"
	// EnvDatabaseURL is consulted when EnvPGDSN is unset.
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = applog.EnvLevel
	EnvLogFormat   = applog.EnvFormat
	EnvLogSource   = applog.EnvSource
	EnvLogFile     = applog.EnvFile
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Playscript")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Playscript")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "playscript")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "playscript")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file at path (the per-user path when empty), applies
// defaults and merges environment overrides. A missing file is not an error;
// a file that exists but cannot be parsed is.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			applyEnvOverrides(&cfg)
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to path (the per-user path when empty).
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.Paths.Input); s != "" {
		dst.Paths.Input = s
	}
	if s := strings.TrimSpace(src.Paths.Output); s != "" {
		dst.Paths.Output = s
	}
	if s := strings.TrimSpace(src.Paths.Index); s != "" {
		dst.Paths.Index = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
	if s := strings.TrimSpace(src.Playback.Language); s != "" {
		dst.Playback.Language = s
	}
	if src.Playback.WordsPerMinute > 0 {
		dst.Playback.WordsPerMinute = src.Playback.WordsPerMinute
	}
	if s := strings.TrimSpace(src.Backend.DSN); s != "" {
		dst.Backend.DSN = s
	}
	if src.Backend.TimeoutMs > 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvInput)); v != "" {
		cfg.Paths.Input = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutput)); v != "" {
		cfg.Paths.Output = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndex)); v != "" {
		cfg.Paths.Index = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		cfg.Playback.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWPM)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Playback.WordsPerMinute = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Backend.DSN = v
	} else if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var names []string
	switch key {
	case "paths.input":
		names = []string{EnvInput}
	case "paths.output":
		names = []string{EnvOutput}
	case "paths.index":
		names = []string{EnvIndex}
	case "playback.language":
		names = []string{EnvLanguage}
	case "playback.words_per_minute":
		names = []string{EnvWPM}
	case "backend.dsn":
		names = []string{EnvPGDSN, EnvDatabaseURL}
	case "logging.level":
		names = []string{EnvLogLevel}
	case "logging.format":
		names = []string{EnvLogFormat}
	case "logging.source":
		names = []string{EnvLogSource}
	case "logging.file":
		names = []string{EnvLogFile}
	}
	for _, n := range names {
		if os.Getenv(n) != "" {
			return n, true
		}
	}
	return "", false
}

// LogOptions converts the logging section into logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
