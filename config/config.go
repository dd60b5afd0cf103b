package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"airbnb-vacancy/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Market  string
	Verbose bool

	DataDir        string
	CacheDir       string
	CSVOutputPath  string
	PipelineConfig string

	RandomSeed     int64
	MaxConcurrency int
	MaxRetries     int
	RateLimitMs    int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChromeBin string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Market:  getEnv("MARKET", "Copenhagen"),
		Verbose: getEnvBool("VERBOSE", false),

		DataDir:        getEnv("DATA_DIR", "./downloaded_data"),
		CacheDir:       getEnv("CACHE_DIR", "./_cache"),
		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/listing_metrics.csv"),
		PipelineConfig: getEnv("PIPELINE_CONFIG", "pipeline.yaml"),

		RandomSeed:     int64(getEnvInt("RANDOM_SEED", 42)),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "airbnb"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "airbnb"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChromeBin: getEnv("CHROME_BIN", ""),
	}
}

// PostgresEnabled reports whether metrics should also be exported to PostgreSQL.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// MarketSlug returns the market name in the form used for URLs and
// directory names: lowercase, without "," or ".", spaces as dashes.
func MarketSlug(market string) string {
	s := strings.ToLower(strings.TrimSpace(market))
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

// MarketDir is the directory holding the market's downloaded tables.
func (c *Config) MarketDir() string {
	return filepath.Join(c.DataDir, MarketSlug(c.Market))
}

// Pipeline holds the tunable parameters of the analytical stages.
type Pipeline struct {
	Stale models.StaleParams `yaml:"stale"`
}

// DefaultPipeline returns the built-in stage parameters.
func DefaultPipeline() Pipeline {
	return Pipeline{Stale: models.DefaultStaleParams()}
}

// LoadPipeline decodes the YAML file at path over the defaults. A missing
// file yields the defaults.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return p, nil
}

// Validate checks windows are positive and thresholds are fractions.
func (p Pipeline) Validate() error {
	s := p.Stale
	if s.AvailabilityMonths <= 0 || s.RecentReviewMonths <= 0 || s.CancelMonths <= 0 {
		return fmt.Errorf("stale windows must be positive months")
	}
	if s.AvailabilityThreshold < 0 || s.AvailabilityThreshold > 1 {
		return fmt.Errorf("availability_threshold %v must be within [0, 1]", s.AvailabilityThreshold)
	}
	if s.CancelThreshold < 0 || s.CancelThreshold > 1 {
		return fmt.Errorf("cancel_threshold %v must be within [0, 1]", s.CancelThreshold)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
