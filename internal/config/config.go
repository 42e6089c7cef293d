package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed sample_config.toml
var sampleConfig string

// Config represents the pipeline configuration
type Config struct {
	Paths     PathsConfig     `toml:"paths"`
	Generator GeneratorConfig `toml:"generator"`
	Model     ModelConfig     `toml:"model"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

// PathsConfig locates the artifacts of each stage
type PathsConfig struct {
	DataDir          string `toml:"data_dir"`
	RawCSV           string `toml:"raw_csv"`
	ProcessedParquet string `toml:"processed_parquet"`
	DBPath           string `toml:"db_path"`
}

// GeneratorConfig holds synthetic telemetry parameters
type GeneratorConfig struct {
	NumFlights      int   `toml:"num_flights"`
	PointsPerFlight int   `toml:"points_per_flight"`
	BaseSeed        int64 `toml:"base_seed"`
}

// ModelConfig holds the outlier model and result table settings
type ModelConfig struct {
	TableName     string  `toml:"table_name"`
	Contamination float64 `toml:"contamination"`
	NEstimators   int     `toml:"n_estimators"`
	Seed          int64   `toml:"seed"`
}

// ServerConfig represents the dashboard/API server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	StaticFilesDir     string   `toml:"static_files_dir"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	APILimit           int      `toml:"api_limit"`
	DashboardLimit     int      `toml:"dashboard_limit"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default artifact names inside the data directory
const (
	DefaultDataDir          = "data"
	DefaultRawCSV           = "raw_telemetry.csv"
	DefaultProcessedParquet = "processed_telemetry.parquet"
	DefaultDBFile           = "intel.db"
	DefaultTableName        = "telemetry_anomalies"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
		},
		Generator: GeneratorConfig{
			NumFlights:      5,
			PointsPerFlight: 200,
			BaseSeed:        42,
		},
		Model: ModelConfig{
			TableName:     DefaultTableName,
			Contamination: 0.02,
			NEstimators:   100,
			Seed:          42,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			APILimit:       100,
			DashboardLimit: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the TOML file at path on top of Default. A missing file is
// not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize fills artifact paths that were left empty relative to DataDir
func (c *Config) normalize() {
	c.Paths.DataDir = strings.TrimSpace(c.Paths.DataDir)
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.Paths.RawCSV) == "" {
		c.Paths.RawCSV = filepath.Join(c.Paths.DataDir, DefaultRawCSV)
	}
	if strings.TrimSpace(c.Paths.ProcessedParquet) == "" {
		c.Paths.ProcessedParquet = filepath.Join(c.Paths.DataDir, DefaultProcessedParquet)
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		c.Paths.DBPath = filepath.Join(c.Paths.DataDir, DefaultDBFile)
	}
	c.Model.TableName = strings.TrimSpace(c.Model.TableName)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Generator.NumFlights < 0 {
		errs = append(errs, fmt.Errorf("generator.num_flights must not be negative"))
	}
	if c.Generator.PointsPerFlight < 0 {
		errs = append(errs, fmt.Errorf("generator.points_per_flight must not be negative"))
	}
	if err := ValidateContamination(c.Model.Contamination); err != nil {
		errs = append(errs, err)
	}
	if c.Model.NEstimators <= 0 {
		errs = append(errs, fmt.Errorf("model.n_estimators must be positive"))
	}
	if err := ValidateTableName(c.Model.TableName); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.APILimit < 0 || c.Server.DashboardLimit < 0 {
		errs = append(errs, fmt.Errorf("server limits must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateContamination checks the expected outlier proportion is in (0, 0.5]
func ValidateContamination(v float64) error {
	if !(v > 0 && v <= 0.5) {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", v)
	}
	return nil
}

// ValidateTableName checks name is a plain SQL identifier
func ValidateTableName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Addr returns the host:port the server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CreateSample writes the embedded sample configuration to path
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
