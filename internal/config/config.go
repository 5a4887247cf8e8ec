package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Dataset       DatasetConfig
	Tickets       TicketsConfig
	AI            AIConfig
	Briefing      BriefingConfig
	Media         MediaConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatasetConfig struct {
	Driver         string
	Path           string
	DefaultMaxRows int
}

type TicketsConfig struct {
	GitHubToken string
	GitHubRepo  string
	LocalDir    string
}

type AIConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type BriefingConfig struct {
	Model       string
	Temperature float64
}

type MediaConfig struct {
	Enabled            bool
	TranscriptionModel string
	ImageModel         string
	ImageSize          string
	ArchiveEnabled     bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("BOOKWISE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid BOOKWISE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "BOOKWISE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "BOOKWISE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "BOOKWISE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "BOOKWISE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_DATASET_DRIVER", &cfg.Dataset.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_DATASET_PATH", &cfg.Dataset.Path); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "BOOKWISE_DATASET_DEFAULT_MAX_ROWS", &cfg.Dataset.DefaultMaxRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_TICKETS_GITHUB_TOKEN", &cfg.Tickets.GitHubToken); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_TICKETS_GITHUB_REPO", &cfg.Tickets.GitHubRepo); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_TICKETS_LOCAL_DIR", &cfg.Tickets.LocalDir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_AI_ENABLED", &cfg.AI.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "BOOKWISE_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "BOOKWISE_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_BRIEFING_MODEL", &cfg.Briefing.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "BOOKWISE_BRIEFING_TEMPERATURE", &cfg.Briefing.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_MEDIA_ENABLED", &cfg.Media.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_MEDIA_TRANSCRIPTION_MODEL", &cfg.Media.TranscriptionModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_MEDIA_IMAGE_MODEL", &cfg.Media.ImageModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_MEDIA_IMAGE_SIZE", &cfg.Media.ImageSize); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_MEDIA_ARCHIVE_ENABLED", &cfg.Media.ArchiveEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "BOOKWISE_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "BOOKWISE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "BOOKWISE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidDatasetDriver(cfg.Dataset.Driver) {
		return Config{}, fmt.Errorf("invalid BOOKWISE_DATASET_DRIVER: %q", cfg.Dataset.Driver)
	}
	if cfg.Dataset.Path == "" {
		return Config{}, fmt.Errorf("dataset path is required")
	}
	if cfg.Dataset.DefaultMaxRows < 0 {
		return Config{}, fmt.Errorf("dataset default max rows must be >= 0")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "bookwise-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Dataset: DatasetConfig{
			Driver:         "sqlite3",
			Path:           "data/books.db",
			DefaultMaxRows: 500,
		},
		Tickets: TicketsConfig{
			LocalDir: "tickets",
		},
		AI: AIConfig{
			Enabled:     false,
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     15 * time.Second,
		},
		Briefing: BriefingConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		Media: MediaConfig{
			Enabled:            false,
			TranscriptionModel: "whisper-1",
			ImageModel:         "gpt-image-1",
			ImageSize:          "1024x1024",
			ArchiveEnabled:     false,
		},
		ObjectStore: ObjectStoreConfig{
			Region:           "us-east-1",
			Bucket:           "bookwise-media",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDatasetDriver(driver string) bool {
	switch driver {
	case "sqlite3", "duckdb":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
