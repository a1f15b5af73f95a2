// Package config loads service configuration from the environment, with an
// optional YAML file (CONFIG_FILE) supplying defaults. Environment variables
// always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoSource is returned when neither a database nor a snapshot is configured.
	ErrNoSource = errors.New("config: DATABASE_URL or SQLITE_PATH must be set")
)

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Port string

	DatabaseURL      string
	StatementTimeout time.Duration
	SQLitePath       string

	RedisURL          string
	DirectoryCacheTTL time.Duration

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	TitleTerms       []string
	DescriptionTerms []string

	Log LogConfig
}

// Load reads the configuration. CONFIG_FILE, when set, must point to a
// readable YAML file; nested keys are flattened to upper snake case, so
// `database: {url: ...}` supplies DATABASE_URL.
func Load() (Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}
	l := lookup{file: file}

	requestTimeout, err := l.duration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	readTimeout, err := l.duration("READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	// The write deadline has to outlast the computation itself.
	writeTimeout, err := l.duration("WRITE_TIMEOUT", requestTimeout+5*time.Second)
	if err != nil {
		return Config{}, err
	}
	statementTimeout, err := l.duration("DATABASE_STATEMENT_TIMEOUT", requestTimeout)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := l.duration("DIRECTORY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:              l.get("PORT", "8000"),
		DatabaseURL:       l.get("DATABASE_URL", ""),
		StatementTimeout:  statementTimeout,
		SQLitePath:        l.get("SQLITE_PATH", ""),
		RedisURL:          l.get("REDIS_URL", ""),
		DirectoryCacheTTL: cacheTTL,
		RequestTimeout:    requestTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		AllowedOrigins:    parseCSV(l.get("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		TitleTerms:        parseCSV(l.get("LEADERBOARD_TITLE_TERMS", "btc")),
		DescriptionTerms:  parseCSV(l.get("LEADERBOARD_DESCRIPTION_TERMS", "bitcoin")),
		Log: LogConfig{
			Level:  l.get("LOG_LEVEL", "info"),
			Format: l.get("LOG_FORMAT", "json"),
		},
	}, nil
}

// Validate checks that a ledger source is configured.
func (c Config) Validate() error {
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return ErrNoSource
	}
	return nil
}

type lookup struct {
	file map[string]string
}

func (l lookup) get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(l.file[key]); v != "" {
		return v
	}
	return fallback
}

func (l lookup) duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := l.get(key, "")
	if raw == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	// Bare integers are seconds.
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %s=%q", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}

func loadFile(path string) (map[string]string, error) {
	out := make(map[string]string)
	if path == "" {
		return out, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	for key, value := range raw {
		if err := flatten(normalizeKey(key), value, out); err != nil {
			return nil, fmt.Errorf("flatten config file %q: %w", path, err)
		}
	}
	return out, nil
}

func flatten(prefix string, value any, out map[string]string) error {
	if prefix == "" {
		return nil
	}
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			if err := flatten(joinKey(prefix, normalizeKey(key)), child, out); err != nil {
				return err
			}
		}
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			switch item.(type) {
			case map[string]any, []any:
				return fmt.Errorf("unsupported list item type %T under %q", item, prefix)
			}
			parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
	default:
		out[prefix] = fmt.Sprint(typed)
	}
	return nil
}

func joinKey(prefix, segment string) string {
	if segment == "" {
		return ""
	}
	return prefix + "_" + segment
}

func normalizeKey(raw string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
