package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage backends accepted by StorageBackend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// HistoryMaxItems caps the recently-viewed list.
	HistoryMaxItems int `json:"history_max_items"`

	// StorageBackend selects where the recently-viewed list is persisted:
	// "sqlite" (default, ~/.coursedesk/coursedesk.db), "redis", or "memory".
	StorageBackend string `json:"storage_backend,omitempty"`

	// RedisAddr is host:port of the redis server when StorageBackend is "redis".
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`

	// StorageTimeoutMS bounds a single storage call (redis only).
	StorageTimeoutMS int `json:"storage_timeout_ms,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// ExclusiveTerms rejects adding a course to one term of the draft plan
	// while it is already planned in the other term.
	ExclusiveTerms bool `json:"exclusive_terms,omitempty"`

	// SessionIdleMinutes evicts web API sessions unused for this long.
	// MaxSessions caps live sessions; the least recently used is evicted first.
	SessionIdleMinutes int `json:"session_idle_minutes,omitempty"`
	MaxSessions        int `json:"max_sessions,omitempty"`

	// ExtractMaxChars truncates text pulled out of uploaded documents.
	ExtractMaxChars int `json:"extract_max_chars"`

	// RemoteURL is the base URL of the hosted backend. Empty disables the advisor.
	RemoteURL       string `json:"remote_url,omitempty"`
	RemoteAPIKey    string `json:"remote_api_key,omitempty"`
	RemoteTimeoutMS int    `json:"remote_timeout_ms,omitempty"`

	// LogLevel is one of debug, info, warn, error. LogFormat is text or json.
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "history", "plan", "selection", "advisor".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HistoryMaxItems:    10,
		StorageBackend:     BackendSQLite,
		StorageTimeoutMS:   2000,
		ExtractMaxChars:    20000,
		SessionIdleMinutes: 30,
		MaxSessions:        1000,
		RemoteTimeoutMS:    30000,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// StorageTimeout returns StorageTimeoutMS as a duration.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutMS) * time.Millisecond
}

// SessionIdleTTL returns SessionIdleMinutes as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// RemoteTimeout returns RemoteTimeoutMS as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// Validate checks values that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown storage_backend: %q", c.StorageBackend)
	}
	if c.StorageBackend == BackendRedis && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("redis_addr is required when storage_backend is redis")
	}
	if c.HistoryMaxItems < 0 {
		return fmt.Errorf("history_max_items must be non-negative")
	}
	if c.SessionIdleMinutes < 0 || c.MaxSessions < 0 {
		return fmt.Errorf("session_idle_minutes and max_sessions must be non-negative")
	}
	if c.ExtractMaxChars < 0 {
		return fmt.Errorf("extract_max_chars must be non-negative")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.coursedesk.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.coursedesk) and repo (.coursedesk) directories.
// Repo config is found by walking upward from startDir to find the nearest .coursedesk/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .coursedesk/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".coursedesk", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.HistoryMaxItems = pickInt(overlay.HistoryMaxItems, base.HistoryMaxItems)
	result.StorageBackend = pickString(overlay.StorageBackend, base.StorageBackend)
	result.RedisAddr = pickString(overlay.RedisAddr, base.RedisAddr)
	result.RedisPassword = pickString(overlay.RedisPassword, base.RedisPassword)
	result.RedisDB = pickInt(overlay.RedisDB, base.RedisDB)
	result.StorageTimeoutMS = pickInt(overlay.StorageTimeoutMS, base.StorageTimeoutMS)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.ExtractMaxChars = pickInt(overlay.ExtractMaxChars, base.ExtractMaxChars)
	result.SessionIdleMinutes = pickInt(overlay.SessionIdleMinutes, base.SessionIdleMinutes)
	result.MaxSessions = pickInt(overlay.MaxSessions, base.MaxSessions)
	result.RemoteURL = pickString(overlay.RemoteURL, base.RemoteURL)
	result.RemoteAPIKey = pickString(overlay.RemoteAPIKey, base.RemoteAPIKey)
	result.RemoteTimeoutMS = pickInt(overlay.RemoteTimeoutMS, base.RemoteTimeoutMS)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	// Booleans: overlay wins if true, else base
	result.ExclusiveTerms = base.ExclusiveTerms || overlay.ExclusiveTerms

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
