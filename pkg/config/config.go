package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends for the schedule store.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Cache backends for derived reports.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// File backends for exports and roster uploads.
const (
	FilesLocal = "local"
	FilesMinio = "minio"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Exports  ExportsConfig
	MinIO    MinIOConfig
	Schedule ScheduleConfig
	Notify   NotifyConfig
}

// StorageConfig selects where terms, students and requests are persisted.
type StorageConfig struct {
	Backend       string
	MigrateOnBoot bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the report cache.
type CacheConfig struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
}

// ExportsConfig controls rendered schedule files and their download links.
type ExportsConfig struct {
	Backend         string
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// MinIOConfig points at the object store used when a backend is "minio".
type MinIOConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	Bucket       string
	ImportBucket string
}

// ScheduleConfig holds timetable defaults.
type ScheduleConfig struct {
	GridStartHour         int
	DefaultSpecialization string
	Seed                  bool
	SeedTermID            string
}

// NotifyConfig wires administrator notifications.
type NotifyConfig struct {
	SendGridKey string
	FromName    string
	FromEmail   string
	AdminEmails []string
	Workers     int
	Retries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Storage = StorageConfig{
		Backend:       strings.ToLower(v.GetString("STORAGE_BACKEND")),
		MigrateOnBoot: v.GetBool("DB_MIGRATE_ON_BOOT"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Backend:         strings.ToLower(v.GetString("CACHE_BACKEND")),
		TTL:             parseDuration(v.GetString("REPORTS_CACHE_TTL"), 5*time.Minute),
		CleanupInterval: parseDuration(v.GetString("CACHE_CLEANUP_INTERVAL"), 10*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Backend:         strings.ToLower(v.GetString("EXPORTS_BACKEND")),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.MinIO = MinIOConfig{
		Endpoint:     v.GetString("MINIO_ENDPOINT"),
		AccessKey:    v.GetString("MINIO_ACCESS_KEY"),
		SecretKey:    v.GetString("MINIO_SECRET_KEY"),
		UseSSL:       v.GetBool("MINIO_USE_SSL"),
		Bucket:       v.GetString("MINIO_BUCKET"),
		ImportBucket: v.GetString("MINIO_IMPORT_BUCKET"),
	}

	cfg.Schedule = ScheduleConfig{
		GridStartHour:         v.GetInt("SCHEDULE_GRID_START_HOUR"),
		DefaultSpecialization: v.GetString("SCHEDULE_DEFAULT_SPECIALIZATION"),
		Seed:                  v.GetBool("SCHEDULE_SEED"),
		SeedTermID:            v.GetString("SCHEDULE_SEED_TERM_ID"),
	}

	cfg.Notify = NotifyConfig{
		SendGridKey: v.GetString("SENDGRID_API_KEY"),
		FromName:    v.GetString("NOTIFY_FROM_NAME"),
		FromEmail:   v.GetString("NOTIFY_FROM_EMAIL"),
		AdminEmails: splitAndTrim(v.GetString("NOTIFY_ADMIN_EMAILS")),
		Workers:     v.GetInt("NOTIFY_WORKERS"),
		Retries:     v.GetInt("NOTIFY_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("DB_MIGRATE_ON_BOOT", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "music_school")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "music-school-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_BACKEND", CacheMemory)
	v.SetDefault("REPORTS_CACHE_TTL", "5m")
	v.SetDefault("CACHE_CLEANUP_INTERVAL", "10m")

	v.SetDefault("EXPORTS_BACKEND", FilesLocal)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "schedule-exports")
	v.SetDefault("MINIO_IMPORT_BUCKET", "roster-imports")

	v.SetDefault("SCHEDULE_GRID_START_HOUR", 10)
	v.SetDefault("SCHEDULE_DEFAULT_SPECIALIZATION", "Oud")
	v.SetDefault("SCHEDULE_SEED", true)
	v.SetDefault("SCHEDULE_SEED_TERM_ID", "fall-2024")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("NOTIFY_FROM_NAME", "Music School")
	v.SetDefault("NOTIFY_FROM_EMAIL", "no-reply@music-school.local")
	v.SetDefault("NOTIFY_ADMIN_EMAILS", "")
	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
