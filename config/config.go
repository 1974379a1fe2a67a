package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Swind/go-threadobject/logging"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/joeycumines/logiface"
)

// Prefix is prepended to every variable name Config reads.
const Prefix = "THREADOBJECT_"

// Config holds process-wide settings.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json or console

	// StartTimeout bounds how long starting a worker thread may block.
	StartTimeout time.Duration `env:"THREAD_START_TIMEOUT" envDefault:"5s"`
	// HistoryCapacity is the number of execution records kept per loop.
	HistoryCapacity int `env:"HISTORY_CAPACITY" envDefault:"100"`

	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"threadobject"`
	MetricsAddr      string        `env:"METRICS_ADDR"` // empty disables the endpoint
	PollInterval     time.Duration `env:"METRICS_POLL_INTERVAL" envDefault:"5s"`
}

// Load reads the process environment and, if present, ./.env.
func Load() (Config, error) {
	return load([]string{".env"}, true)
}

// LoadFrom reads the process environment and the given dotenv files.
// A missing file is an error.
func LoadFrom(paths ...string) (Config, error) {
	return load(paths, false)
}

// MustLoad works like Load but panics on failure.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func load(paths []string, optional bool) (Config, error) {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}

	for _, path := range paths {
		vals, err := godotenv.Read(path)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, errors.Join(ErrParsingConfig, err)
		}
		for k, v := range vals {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      Prefix,
		Environment: environ,
	}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.StartTimeout < 0 {
		errs = append(errs, fmt.Errorf("negative thread start timeout %s", c.StartTimeout))
	}
	if c.HistoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("negative history capacity %d", c.HistoryCapacity))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics poll interval must be positive, got %s", c.PollInterval))
	}
	if len(errs) != 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c Config) NewLogger(w io.Writer) (*logiface.Logger[logiface.Event], error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if c.LogFormat == "console" {
		return logging.NewConsole(w, level), nil
	}
	return logging.New(w, level), nil
}
