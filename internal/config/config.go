package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
	"github.com/riskibarqy/league-snapshot/internal/platform/resilience"
	"github.com/robfig/cron/v3"
)

// Config stores runtime configuration for the exporter.
type Config struct {
	AppEnv         string        `env:"APP_ENV" validate:"oneof=dev stage prod"`
	ServiceName    string        `env:"APP_SERVICE_NAME" validate:"required"`
	ServiceVersion string        `env:"APP_SERVICE_VERSION"`
	LogLevel       logging.Level `env:"APP_LOG_LEVEL"`

	APIFootballKey                   string        `env:"API_FOOTBALL_KEY" validate:"required"`
	APIFootballBaseURL               string        `env:"API_FOOTBALL_BASE_URL" validate:"required,url"`
	APIFootballTimeout               time.Duration `env:"API_FOOTBALL_TIMEOUT" validate:"gt=0"`
	APIFootballMaxRetries            int           `env:"API_FOOTBALL_MAX_RETRIES" validate:"gte=0"`
	APIFootballCircuitEnabled        bool          `env:"API_FOOTBALL_CIRCUIT_ENABLED"`
	APIFootballCircuitFailureCount   int           `env:"API_FOOTBALL_CIRCUIT_FAILURE_COUNT" validate:"gte=1"`
	APIFootballCircuitOpenTimeout    time.Duration `env:"API_FOOTBALL_CIRCUIT_OPEN_TIMEOUT" validate:"gt=0"`
	APIFootballCircuitHalfOpenMaxReq int           `env:"API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ" validate:"gte=1"`

	LeagueID int64 `env:"LEAGUE_ID" validate:"gt=0"`
	Season   int   `env:"SEASON" validate:"gt=0"`

	Database Database

	ExportTableStandings  string `env:"EXPORT_TABLE_STANDINGS" validate:"required"`
	ExportTableTopScorers string `env:"EXPORT_TABLE_TOP_SCORERS" validate:"required"`
	ExportTableTopAssists string `env:"EXPORT_TABLE_TOP_ASSISTS" validate:"required"`
	ExportReplaceStrategy string `env:"EXPORT_REPLACE_STRATEGY" validate:"oneof=drop swap"`
	ExportBulkMode        string `env:"EXPORT_BULK_MODE" validate:"oneof=copy insert"`
	ExportInsertBatchSize int    `env:"EXPORT_INSERT_BATCH_SIZE" validate:"gt=0"`
	ExportAtomicBatch     bool   `env:"EXPORT_ATOMIC_BATCH"`
	ExportRunLogEnabled   bool   `env:"EXPORT_RUN_LOG_ENABLED"`
	// ExportSchedule is a standard five-field cron expression. Empty runs once.
	ExportSchedule        string `env:"EXPORT_SCHEDULE"`

	UptraceEnabled     bool   `env:"UPTRACE_ENABLED"`
	UptraceDSN         string `env:"UPTRACE_DSN" validate:"required_if=UptraceEnabled true"`
	UptraceLogsEnabled bool   `env:"UPTRACE_LOGS_ENABLED"`

	PyroscopeEnabled           bool          `env:"PYROSCOPE_ENABLED"`
	PyroscopeServerAddress     string        `env:"PYROSCOPE_SERVER_ADDRESS" validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName           string        `env:"PYROSCOPE_APP_NAME" validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAuthToken         string        `env:"PYROSCOPE_AUTH_TOKEN"`
	PyroscopeBasicAuthUser     string        `env:"PYROSCOPE_BASIC_AUTH_USER"`
	PyroscopeBasicAuthPassword string        `env:"PYROSCOPE_BASIC_AUTH_PASSWORD"`
	PyroscopeUploadRate        time.Duration `env:"PYROSCOPE_UPLOAD_RATE" validate:"gt=0"`
}

// Database holds the connection settings shared by the exporter and the
// migration command.
type Database struct {
	URL                   string `env:"DB_URL"`
	Host                  string `env:"DB_HOST" validate:"required_without=URL"`
	Port                  int    `env:"DB_PORT" validate:"gt=0,lte=65535"`
	Name                  string `env:"DB_NAME" validate:"required_without=URL"`
	Username              string `env:"DB_USERNAME" validate:"required_without=URL"`
	Password              string `env:"DB_PASSWORD"`
	SSLMode               string `env:"DB_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	Driver                string `env:"DB_DRIVER" validate:"eq=postgres"`
	Schema                string `env:"DB_SCHEMA" validate:"required"`
	DisablePreparedBinary bool   `env:"DB_DISABLE_PREPARED_BINARY_RESULT"`
}

// ConnectionURL returns DB_URL when set, otherwise a postgres URL assembled
// from the individual parts.
func (d Database) ConnectionURL() string {
	if raw := strings.TrimSpace(d.URL); raw != "" {
		return raw
	}

	user := url.User(d.Username)
	if d.Password != "" {
		user = url.UserPassword(d.Username, d.Password)
	}
	query := url.Values{}
	query.Set("sslmode", d.SSLMode)

	out := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: query.Encode(),
	}
	return out.String()
}

// APIFootballCircuitBreaker returns the breaker settings for the API client.
func (c Config) APIFootballCircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          c.APIFootballCircuitEnabled,
		FailureThreshold: c.APIFootballCircuitFailureCount,
		OpenTimeout:      c.APIFootballCircuitOpenTimeout,
		HalfOpenMaxReq:   c.APIFootballCircuitHalfOpenMaxReq,
	}
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	db, err := loadDatabase()
	if err != nil {
		return Config{}, err
	}

	apiTimeout, err := time.ParseDuration(getEnv("API_FOOTBALL_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_TIMEOUT: %w", err)
	}
	apiMaxRetries, err := getEnvAsInt("API_FOOTBALL_MAX_RETRIES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_MAX_RETRIES: %w", err)
	}
	apiCircuitEnabled, err := strconv.ParseBool(getEnv("API_FOOTBALL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_ENABLED: %w", err)
	}
	apiCircuitFailureCount, err := getEnvAsInt("API_FOOTBALL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	apiCircuitOpenTimeout, err := time.ParseDuration(getEnv("API_FOOTBALL_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	apiCircuitHalfOpenMaxReq, err := getEnvAsInt("API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	leagueID, err := strconv.ParseInt(getEnv("LEAGUE_ID", "39"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_ID: %w", err)
	}
	season, err := getEnvAsInt("SEASON", 2024)
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON: %w", err)
	}

	insertBatchSize, err := getEnvAsInt("EXPORT_INSERT_BATCH_SIZE", 500)
	if err != nil {
		return Config{}, fmt.Errorf("parse EXPORT_INSERT_BATCH_SIZE: %w", err)
	}
	atomicBatch, err := strconv.ParseBool(getEnv("EXPORT_ATOMIC_BATCH", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse EXPORT_ATOMIC_BATCH: %w", err)
	}
	runLogEnabled, err := strconv.ParseBool(getEnv("EXPORT_RUN_LOG_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse EXPORT_RUN_LOG_ENABLED: %w", err)
	}
	schedule := strings.TrimSpace(getEnv("EXPORT_SCHEDULE", ""))
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return Config{}, fmt.Errorf("parse EXPORT_SCHEDULE: %w", err)
		}
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	cfg := Config{
		AppEnv:                           appEnv,
		ServiceName:                      getEnv("APP_SERVICE_NAME", "league-snapshot"),
		ServiceVersion:                   getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                         parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		APIFootballKey:                   strings.TrimSpace(getEnv("API_FOOTBALL_KEY", "")),
		APIFootballBaseURL:               strings.TrimSpace(getEnv("API_FOOTBALL_BASE_URL", "https://v3.football.api-sports.io")),
		APIFootballTimeout:               apiTimeout,
		APIFootballMaxRetries:            apiMaxRetries,
		APIFootballCircuitEnabled:        apiCircuitEnabled,
		APIFootballCircuitFailureCount:   apiCircuitFailureCount,
		APIFootballCircuitOpenTimeout:    apiCircuitOpenTimeout,
		APIFootballCircuitHalfOpenMaxReq: apiCircuitHalfOpenMaxReq,
		LeagueID:                         leagueID,
		Season:                           season,
		Database:                         db,
		ExportTableStandings:             strings.TrimSpace(getEnv("EXPORT_TABLE_STANDINGS", "epl_standings")),
		ExportTableTopScorers:            strings.TrimSpace(getEnv("EXPORT_TABLE_TOP_SCORERS", "epl_top_scorers")),
		ExportTableTopAssists:            strings.TrimSpace(getEnv("EXPORT_TABLE_TOP_ASSISTS", "epl_top_assists")),
		ExportReplaceStrategy:            strings.ToLower(strings.TrimSpace(getEnv("EXPORT_REPLACE_STRATEGY", "drop"))),
		ExportBulkMode:                   strings.ToLower(strings.TrimSpace(getEnv("EXPORT_BULK_MODE", "copy"))),
		ExportInsertBatchSize:            insertBatchSize,
		ExportAtomicBatch:                atomicBatch,
		ExportRunLogEnabled:              runLogEnabled,
		ExportSchedule:                   schedule,
		UptraceEnabled:                   uptraceEnabled,
		UptraceDSN:                       uptraceDSN,
		UptraceLogsEnabled:               uptraceLogsEnabled,
		PyroscopeEnabled:                 pyroscopeEnabled,
		PyroscopeServerAddress:           strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:               strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:           strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:       strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:              pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings. The migration command uses
// it so that it does not need an API key.
func LoadDatabase() (Database, error) {
	db, err := loadDatabase()
	if err != nil {
		return Database{}, err
	}
	if err := validate(db); err != nil {
		return Database{}, err
	}
	return db, nil
}

func loadDatabase() (Database, error) {
	port, err := getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return Database{}, fmt.Errorf("parse DB_PORT: %w", err)
	}
	disablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Database{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	return Database{
		URL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		Host:                  strings.TrimSpace(getEnv("DB_HOST", "localhost")),
		Port:                  port,
		Name:                  strings.TrimSpace(getEnv("DB_NAME", "league_snapshot")),
		Username:              strings.TrimSpace(getEnv("DB_USERNAME", "postgres")),
		Password:              getEnv("DB_PASSWORD", ""),
		SSLMode:               strings.ToLower(strings.TrimSpace(getEnv("DB_SSLMODE", "disable"))),
		Driver:                strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", "postgres"))),
		Schema:                strings.TrimSpace(getEnv("DB_SCHEMA", "public")),
		DisablePreparedBinary: disablePreparedBinary,
	}, nil
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// validate reports the first failing field by its environment variable name.
func validate(value any) error {
	err := structValidator.Struct(value)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	first := validationErrs[0]
	if first.Param() != "" {
		return fmt.Errorf("invalid %s: failed %s=%s (got %q)", first.Field(), first.Tag(), first.Param(), fmt.Sprint(first.Value()))
	}
	return fmt.Errorf("invalid %s: failed %s", first.Field(), first.Tag())
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
