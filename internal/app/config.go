package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete posctl configuration, loadable from environment
// variables (POS_ prefix) or YAML config files. Command line flags belong to
// the CLI and are not read here.
type Config struct {
	DatabaseURL string       `yaml:"database_url" usage:"PostgreSQL connection URL (POS_DATABASE_URL or DATABASE_URL)"`
	Orders      OrdersConfig `yaml:"orders"`
	Doctor      DoctorConfig `yaml:"doctor"`
}

// OrdersConfig controls order validation.
type OrdersConfig struct {
	StrictTotals bool `yaml:"strict_totals" default:"true" usage:"Reject orders whose subtotal plus tax differs from the total"`
}

// DoctorConfig controls the diagnostic checks of posctl doctor.
type DoctorConfig struct {
	Timeout  time.Duration `yaml:"timeout" default:"5s" usage:"Timeout of a single check attempt"`
	Attempts int           `yaml:"attempts" default:"3"  usage:"Attempts before a check is reported as failed"`
	Backoff  time.Duration `yaml:"backoff" default:"1s" usage:"Delay between attempts"`
}

var configFiles = []string{"config.yaml", "/etc/pos/config.yaml"}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(configFiles)
}

func loadConfig(files []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "POS",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set POS_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL variable to the
// POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}
