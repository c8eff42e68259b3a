package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers for the attendance record store.
const (
	StoreCSV      = "csv"
	StorePostgres = "postgres"
)

// Watch modes for the record store watcher.
const (
	WatchPoll   = "poll"
	WatchNotify = "notify"
)

// Photo storage backends.
const (
	PhotoLocal = "local"
	PhotoS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Data       DataConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	JWT        JWTConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Log        LogConfig
	Watcher    WatcherConfig
	Attendance AttendanceConfig
	Exports    ExportsConfig
	Photos     PhotoConfig
	Serial     SerialConfig
}

// DataConfig locates the flat files backing the application.
type DataConfig struct {
	Dir              string
	StoreDriver      string
	StudentsFile     string
	AdminFile        string
	SettingsFile     string
	ProfilesDir      string
	PlaceholderPhoto string
}

// StudentsPath returns the absolute-or-relative path of the record store file.
func (d DataConfig) StudentsPath() string { return filepath.Join(d.Dir, d.StudentsFile) }

// AdminPath returns the credential store path.
func (d DataConfig) AdminPath() string { return filepath.Join(d.Dir, d.AdminFile) }

// SettingsPath returns the settings store path.
func (d DataConfig) SettingsPath() string { return filepath.Join(d.Dir, d.SettingsFile) }

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

// CacheConfig toggles the Redis-backed response cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig controls credential storage.
type AuthConfig struct {
	HashPasswords bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WatcherConfig configures record store change detection.
type WatcherConfig struct {
	Enabled  bool
	Mode     string
	Interval time.Duration
}

// AttendanceConfig carries the schedule defaults used before settings are saved.
type AttendanceConfig struct {
	ClassStartTime       string
	ClassDurationMinutes int
	ClassesPerQuarter    int
	GraceMinutes         int
}

// ExportsConfig configures report rendering and signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// PhotoConfig selects where uploaded student photos are written.
type PhotoConfig struct {
	Backend     string
	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3URL       string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// SerialConfig configures the RFID reader connection.
type SerialConfig struct {
	Port     string
	BaudRate int
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
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Data = DataConfig{
		Dir:              v.GetString("DATA_DIR"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		StudentsFile:     v.GetString("STUDENTS_FILE"),
		AdminFile:        v.GetString("ADMIN_FILE"),
		SettingsFile:     v.GetString("SETTINGS_FILE"),
		ProfilesDir:      v.GetString("PROFILES_DIR"),
		PlaceholderPhoto: v.GetString("PLACEHOLDER_PHOTO"),
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

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{HashPasswords: v.GetBool("AUTH_HASH_PASSWORDS")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Watcher = WatcherConfig{
		Enabled:  v.GetBool("ENABLE_WATCHER"),
		Mode:     strings.ToLower(v.GetString("WATCH_MODE")),
		Interval: parseDuration(v.GetString("WATCH_INTERVAL"), time.Second),
	}

	cfg.Attendance = AttendanceConfig{
		ClassStartTime:       v.GetString("CLASS_START_TIME"),
		ClassDurationMinutes: v.GetInt("CLASS_DURATION_MINUTES"),
		ClassesPerQuarter:    v.GetInt("CLASSES_PER_QUARTER"),
		GraceMinutes:         v.GetInt("ATTENDANCE_GRACE_MINUTES"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Photos = PhotoConfig{
		Backend:     strings.ToLower(v.GetString("PHOTO_STORAGE")),
		S3Bucket:    v.GetString("S3_BUCKET"),
		S3Region:    v.GetString("S3_REGION"),
		S3Prefix:    v.GetString("S3_PREFIX"),
		S3URL:       v.GetString("S3_PUBLIC_URL"),
		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),
	}

	cfg.Serial = SerialConfig{
		Port:     v.GetString("SERIAL_PORT"),
		BaudRate: v.GetInt("SERIAL_BAUD"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DATA_DIR", "./database")
	v.SetDefault("STORE_DRIVER", StoreCSV)
	v.SetDefault("STUDENTS_FILE", "Students_Data.csv")
	v.SetDefault("ADMIN_FILE", "admin.csv")
	v.SetDefault("SETTINGS_FILE", "settings.csv")
	v.SetDefault("PROFILES_DIR", "./assets/profiles")
	v.SetDefault("PLACEHOLDER_PHOTO", "/assets/placeholder.png")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "recordsync")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "1m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "recordsync")
	v.SetDefault("AUTH_HASH_PASSWORDS", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_WATCHER", true)
	v.SetDefault("WATCH_MODE", WatchPoll)
	v.SetDefault("WATCH_INTERVAL", "1s")

	v.SetDefault("CLASS_START_TIME", "08:00 AM")
	v.SetDefault("CLASS_DURATION_MINUTES", 420)
	v.SetDefault("CLASSES_PER_QUARTER", 20)
	v.SetDefault("ATTENDANCE_GRACE_MINUTES", 5)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("PHOTO_STORAGE", PhotoLocal)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "profiles/")
	v.SetDefault("S3_PUBLIC_URL", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")

	v.SetDefault("SERIAL_PORT", "/dev/ttyUSB0")
	v.SetDefault("SERIAL_BAUD", 9600)
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

// viper surfaces a missing explicit config file as an *fs.PathError rather
// than ConfigFileNotFoundError.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
