package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Attendance   AttendanceConfig
	Square       SquareConfig
	Storage      StorageConfig
	Metrics      MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
	// AdminEmail and AdminPassword seed an administrator on startup when both are set.
	AdminEmail    string
	AdminPassword string
}

// NotificationConfig holds email delivery settings.
type NotificationConfig struct {
	EmailFrom      string
	EmailFromName  string
	SendGridAPIKey string
}

// AttendanceConfig tunes the attendance-code workflow.
type AttendanceConfig struct {
	// TimezoneOffsetHours is added to the current instant before comparing it
	// with course dates, which are stored as local wall time.
	TimezoneOffsetHours  int
	MaxValidateAttempts  int
	AttemptWindowSeconds int
	MaxCodeDrawsPerIssue int
}

// SquareConfig holds payment provider credentials.
type SquareConfig struct {
	AccessToken string
	Env         string
	LocationID  string
	Currency    string
}

// StorageConfig points at the object storage used for course images.
type StorageConfig struct {
	UploadURL     string
	APIKey        string
	PublicBaseURL string
	MaxImageBytes int64
	TimeoutSecs   int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "course-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:              os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:           os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailFromName:  getEnv("NOTIFY_EMAIL_FROM_NAME", "Course Service"),
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		},
		Attendance: AttendanceConfig{
			TimezoneOffsetHours:  getEnvAsInt("ATTENDANCE_TZ_OFFSET_HOURS", 7),
			MaxValidateAttempts:  getEnvAsInt("ATTENDANCE_MAX_ATTEMPTS", 5),
			AttemptWindowSeconds: getEnvAsInt("ATTENDANCE_ATTEMPT_WINDOW_SECONDS", 300),
			MaxCodeDrawsPerIssue: getEnvAsInt("ATTENDANCE_MAX_CODE_DRAWS", 20),
		},
		Square: SquareConfig{
			AccessToken: os.Getenv("SQUARE_ACCESS_TOKEN"),
			Env:         getEnv("SQUARE_ENV", "sandbox"),
			LocationID:  os.Getenv("SQUARE_LOCATION_ID"),
			Currency:    strings.ToUpper(getEnv("SQUARE_CURRENCY", "THB")),
		},
		Storage: StorageConfig{
			UploadURL:     os.Getenv("STORAGE_UPLOAD_URL"),
			APIKey:        os.Getenv("STORAGE_API_KEY"),
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
			MaxImageBytes: int64(getEnvAsInt("STORAGE_MAX_IMAGE_BYTES", 5<<20)),
			TimeoutSecs:   getEnvAsInt("STORAGE_TIMEOUT_SECONDS", 15),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Offset returns the timezone offset as a duration.
func (a AttendanceConfig) Offset() time.Duration {
	return time.Duration(a.TimezoneOffsetHours) * time.Hour
}

// AttemptWindow returns the rate-limit window for code validation.
func (a AttendanceConfig) AttemptWindow() time.Duration {
	if a.AttemptWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.AttemptWindowSeconds) * time.Second
}

// Enabled reports whether payment checkout is configured.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.LocationID) != ""
}

// Timeout returns the upload timeout.
func (s StorageConfig) Timeout() time.Duration {
	if s.TimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSecs) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
