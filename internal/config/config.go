// Package config loads filevault settings from defaults, an optional YAML
// file, a .env file, the environment and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the YAML config file when -config is not given.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	GRPCAddr        string        `koanf:"grpc_addr"` // empty disables the health server
	Mode            string        `koanf:"mode"`      // gin mode: debug, release, test
	CORSOrigin      string        `koanf:"cors_origin"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	HealthInterval  time.Duration `koanf:"health_interval"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type AuthConfig struct {
	AccessSecret  string        `koanf:"access_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshSecret string        `koanf:"refresh_secret"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	CookieSecure  bool          `koanf:"cookie_secure"`
}

type StorageConfig struct {
	Backend       string      `koanf:"backend"` // local or minio
	LocalPath     string      `koanf:"local_path"`
	MaxUploadSize int64       `koanf:"max_upload_size"`
	AllowedTypes  []string    `koanf:"allowed_types"`
	MinIO         MinIOConfig `koanf:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// Storage backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			GRPCAddr:        ":5001",
			Mode:            "release",
			CORSOrigin:      "http://localhost:5173",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			HealthInterval:  10 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend:       BackendLocal,
			LocalPath:     "uploads",
			MaxUploadSize: 5 << 20,
			AllowedTypes:  []string{"image/jpeg", "image/png", "application/pdf", "text/plain"},
			MinIO:         MinIOConfig{Bucket: "filevault"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// envKeys maps environment variables to config paths.
var envKeys = map[string]string{
	"PORT":                   "server.addr",
	"GRPC_ADDR":              "server.grpc_addr",
	"GIN_MODE":               "server.mode",
	"CORS_ORIGIN":            "server.cors_origin",
	"SHUTDOWN_TIMEOUT":       "server.shutdown_timeout",
	"DATABASE_URL":           "database.dsn",
	"JWT_ACCESS_SECRET":      "auth.access_secret",
	"JWT_ACCESS_EXPIRES_IN":  "auth.access_ttl",
	"JWT_REFRESH_SECRET":     "auth.refresh_secret",
	"JWT_REFRESH_EXPIRES_IN": "auth.refresh_ttl",
	"COOKIE_SECURE":          "auth.cookie_secure",
	"STORAGE_BACKEND":        "storage.backend",
	"UPLOAD_DIR":             "storage.local_path",
	"MAX_UPLOAD_SIZE":        "storage.max_upload_size",
	"ALLOWED_TYPES":          "storage.allowed_types",
	"MINIO_ENDPOINT":         "storage.minio.endpoint",
	"MINIO_ACCESS_KEY":       "storage.minio.access_key",
	"MINIO_SECRET_KEY":       "storage.minio.secret_key",
	"MINIO_USE_SSL":          "storage.minio.use_ssl",
	"MINIO_BUCKET":           "storage.minio.bucket",
	"LOG_LEVEL":              "logging.level",
	"LOG_FORMAT":             "logging.format",
}

// envValue maps one environment variable to a config path and value.
// Unknown variables return an empty key and are skipped.
func envValue(key, value string) (string, any) {
	path, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	switch path {
	case "server.addr":
		if !strings.Contains(value, ":") {
			value = ":" + value
		}
	case "auth.access_ttl", "auth.refresh_ttl":
		value = normalizeDuration(value)
	case "storage.allowed_types":
		return path, splitList(value)
	}
	return path, value
}

// normalizeDuration accepts Go durations plus the "7d" and bare-seconds
// forms common in JWT expiry settings.
func normalizeDuration(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return (time.Duration(n) * time.Second).String()
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return (time.Duration(n) * 24 * time.Hour).String()
		}
	}
	return v
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds the configuration. args are the command-line arguments
// without the program name.
func Load(args []string) (*Config, error) {
	fset := flag.NewFlagSet("filevault", flag.ContinueOnError)
	configPath := fset.String("config", "", "path to YAML config file")
	addr := fset.String("addr", "", "HTTP listen address (overrides config)")
	envFile := fset.String("env-file", ".env", "dotenv file loaded before reading the environment")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if err := loadDotenv(*envFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotenv loads path into the process environment without overriding
// variables that are already set. A missing file is fine.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, a ...any) { problems = append(problems, fmt.Errorf(format, a...)) }

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		add("unknown server.mode %q", c.Server.Mode)
	}
	if c.Database.DSN == "" {
		add("database.dsn (DATABASE_URL) is required")
	}
	if c.Auth.AccessSecret == "" {
		add("auth.access_secret (JWT_ACCESS_SECRET) is required")
	}
	if c.Auth.RefreshSecret == "" {
		add("auth.refresh_secret (JWT_REFRESH_SECRET) is required")
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		add("access and refresh secrets must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		add("token lifetimes must be positive")
	}
	if c.Storage.MaxUploadSize <= 0 {
		add("storage.max_upload_size must be positive")
	}
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalPath == "" {
			add("storage.local_path is required for the local backend")
		}
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			add("storage.minio.endpoint and storage.minio.bucket are required for the minio backend")
		}
	default:
		add("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		add("unknown logging.format %q", c.Logging.Format)
	}
	return errors.Join(problems...)
}
