package config

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Planning PlanningConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string `validate:"required"`
	Mode           string `validate:"oneof=debug release test"`
	ReadTimeout    int    `validate:"min=0"`
	WriteTimeout   int    `validate:"min=0"`
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// URL takes precedence over the discrete fields when set.
	URL string
}

// DSN returns a URL-form connection string usable by both lib/pq and pgx.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int `validate:"min=0"`
	PlanningTTLSeconds int `validate:"min=0"`
}

// PlanningConfig holds the defaults applied when a request or batch run does
// not specify its own planning parameters.
type PlanningConfig struct {
	ForecastPeriods     int     `validate:"min=1,max=12"`
	HistoricalPeriods   int     `validate:"min=6,max=60"`
	ForecastMethod      string  `validate:"omitempty,oneof=auto moving_average exponential_smoothing linear_trend seasonal_naive seasonal_decompose"`
	DefaultServiceLevel float64 `validate:"gt=0,lt=1"`
	DefaultLeadTimeDays int     `validate:"min=1,max=365"`
	OrderingCost        float64 `validate:"gt=0"`
	HoldingCostPct      float64 `validate:"gt=0,max=100"`
	AnalysisDays        int     `validate:"min=7,max=730"`
}

type PipelineConfig struct {
	Workers       int `validate:"min=1,max=64"`
	RetryAttempts int `validate:"min=0,max=10"`
	BatchSize     int `validate:"min=1,max=1000"`
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string `validate:"required_if=Enabled true"`
	AccessKey string `validate:"required_if=Enabled true"`
	SecretKey string `validate:"required_if=Enabled true"`
	Bucket    string `validate:"required_if=Enabled true"`
	UseSSL    bool
	Region    string
}

type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	// Format is console for human-readable output or json for log shippers.
	Format string `validate:"omitempty,oneof=console json"`
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "velorize")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_PLANNING_TTL_SECONDS", 300)
		viper.SetDefault("PLANNING_FORECAST_PERIODS", 3)
		viper.SetDefault("PLANNING_HISTORICAL_PERIODS", 12)
		viper.SetDefault("PLANNING_FORECAST_METHOD", "auto")
		viper.SetDefault("PLANNING_DEFAULT_SERVICE_LEVEL", 0.95)
		viper.SetDefault("PLANNING_DEFAULT_LEAD_TIME_DAYS", 7)
		viper.SetDefault("PLANNING_ORDERING_COST", 100.0)
		viper.SetDefault("PLANNING_HOLDING_COST_PCT", 20.0)
		viper.SetDefault("PLANNING_ANALYSIS_DAYS", 90)
		viper.SetDefault("PIPELINE_WORKERS", 4)
		viper.SetDefault("PIPELINE_RETRY_ATTEMPTS", 3)
		viper.SetDefault("PIPELINE_BATCH_SIZE", 50)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("S3_USE_SSL", true)
		viper.SetDefault("S3_REGION", "us-east-1")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "console")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				URL:      viper.GetString("DATABASE_URL"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				PlanningTTLSeconds: viper.GetInt("CACHE_PLANNING_TTL_SECONDS"),
			},
			Planning: PlanningConfig{
				ForecastPeriods:     viper.GetInt("PLANNING_FORECAST_PERIODS"),
				HistoricalPeriods:   viper.GetInt("PLANNING_HISTORICAL_PERIODS"),
				ForecastMethod:      viper.GetString("PLANNING_FORECAST_METHOD"),
				DefaultServiceLevel: viper.GetFloat64("PLANNING_DEFAULT_SERVICE_LEVEL"),
				DefaultLeadTimeDays: viper.GetInt("PLANNING_DEFAULT_LEAD_TIME_DAYS"),
				OrderingCost:        viper.GetFloat64("PLANNING_ORDERING_COST"),
				HoldingCostPct:      viper.GetFloat64("PLANNING_HOLDING_COST_PCT"),
				AnalysisDays:        viper.GetInt("PLANNING_ANALYSIS_DAYS"),
			},
			Pipeline: PipelineConfig{
				Workers:       viper.GetInt("PIPELINE_WORKERS"),
				RetryAttempts: viper.GetInt("PIPELINE_RETRY_ATTEMPTS"),
				BatchSize:     viper.GetInt("PIPELINE_BATCH_SIZE"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("S3_ENDPOINT"),
				AccessKey: viper.GetString("S3_ACCESS_KEY"),
				SecretKey: viper.GetString("S3_SECRET_KEY"),
				Bucket:    viper.GetString("S3_BUCKET"),
				UseSSL:    viper.GetBool("S3_USE_SSL"),
				Region:    viper.GetString("S3_REGION"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
		}
	})

	return instance
}

var validate = validator.New()

// Validate checks every section against its struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
