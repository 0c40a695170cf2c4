package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend   Backend   `yaml:"backend"`
	Benchmark Benchmark `yaml:"benchmark"`
	Server    Server    `yaml:"server"`
	Collect   Collect   `yaml:"collect"`
}

// Backend holds the connection parameters of the datastore under test.
// Driver is one of mysql, mariadb, postgres, sqlite or mongo. For sqlite,
// Database is the file path.
type Backend struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type Benchmark struct {
	Runs       int    `yaml:"runs"`
	Seed       int64  `yaml:"seed"`
	ChunkSize  int    `yaml:"chunk_size"`
	Timestamps string `yaml:"timestamps"`
	OutputDir  string `yaml:"output_dir"`
	Spans      Spans  `yaml:"spans"`
}

// Spans are configured per operation kind; the kinds do not have to share
// a sequence.
type Spans struct {
	Insert []int `yaml:"insert"`
	Delete []int `yaml:"delete"`
	Update []int `yaml:"update"`
	Query  []int `yaml:"query"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Collect struct {
	BaseURL string        `yaml:"base_url"`
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	TimestampsWindow = "window"
	TimestampsJitter = "jitter"
)

var (
	insertSpans = []int{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000, 200000, 300000, 400000, 500000}
	otherSpans  = []int{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000}
)

// Default returns a configuration for a local MariaDB with the stock span
// sequences.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Database: "benchmark",
		},
		Benchmark: Benchmark{
			Runs:       10,
			ChunkSize:  200000,
			Timestamps: TimestampsWindow,
			OutputDir:  ".",
			Spans: Spans{
				Insert: append([]int(nil), insertSpans...),
				Delete: append([]int(nil), otherSpans...),
				Update: append([]int(nil), otherSpans...),
				Query:  append([]int(nil), otherSpans...),
			},
		},
		Server: Server{
			Addr:         ":8000",
			WriteTimeout: 30 * time.Minute,
		},
		Collect: Collect{
			BaseURL: "http://localhost:8000",
			Prefix:  "maria",
			Timeout: 30 * time.Minute,
		},
	}
}

// LoadConfig reads a YAML file on top of Default. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return config, nil
}

// ApplyEnv overlays the BENCH_DRIVER and MARIADB_* variables.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BENCH_DRIVER"); ok {
		c.Backend.Driver = v
	}
	if v, ok := lookup("MARIADB_HOST"); ok {
		c.Backend.Host = v
	}
	if v, ok := lookup("MARIADB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARIADB_PORT: %w", err)
		}
		c.Backend.Port = port
	}
	if v, ok := lookup("MARIADB_USER"); ok {
		c.Backend.User = v
	}
	if v, ok := lookup("MARIADB_PASSWORD"); ok {
		c.Backend.Password = v
	}
	if v, ok := lookup("MARIADB_DATABASE"); ok {
		c.Backend.Database = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "mysql", "mariadb", "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported backend driver %q", c.Backend.Driver)
	}
	if c.Backend.Database == "" {
		return fmt.Errorf("backend database must be set")
	}
	if c.Benchmark.Runs < 1 {
		return fmt.Errorf("benchmark runs must be at least 1, got %d", c.Benchmark.Runs)
	}
	if c.Benchmark.ChunkSize < 1 {
		return fmt.Errorf("benchmark chunk_size must be at least 1, got %d", c.Benchmark.ChunkSize)
	}
	switch c.Benchmark.Timestamps {
	case TimestampsWindow, TimestampsJitter:
	default:
		return fmt.Errorf("unknown timestamps policy %q", c.Benchmark.Timestamps)
	}
	for name, spans := range map[string][]int{
		"insert": c.Benchmark.Spans.Insert,
		"delete": c.Benchmark.Spans.Delete,
		"update": c.Benchmark.Spans.Update,
		"query":  c.Benchmark.Spans.Query,
	} {
		if err := ValidateSpans(spans); err != nil {
			return fmt.Errorf("spans.%s: %w", name, err)
		}
	}
	return nil
}

// ValidateSpans checks that spans is non-empty, positive and strictly
// ascending.
func ValidateSpans(spans []int) error {
	if len(spans) == 0 {
		return fmt.Errorf("span sequence is empty")
	}
	for i, s := range spans {
		if s < 1 {
			return fmt.Errorf("span %d at position %d is not positive", s, i)
		}
		if i > 0 && s <= spans[i-1] {
			return fmt.Errorf("span %d at position %d is not greater than %d", s, i, spans[i-1])
		}
	}
	return nil
}

// SpansFor returns the configured sequence for an operation kind name.
func (b Benchmark) SpansFor(kind string) ([]int, error) {
	switch kind {
	case "insert":
		return b.Spans.Insert, nil
	case "delete":
		return b.Spans.Delete, nil
	case "update":
		return b.Spans.Update, nil
	case "query":
		return b.Spans.Query, nil
	}
	return nil, fmt.Errorf("unknown operation kind %q", kind)
}

// DSN builds the connection string for the configured driver.
func (b Backend) DSN() string {
	switch b.Driver {
	case "mysql", "mariadb":
		cfg := mysql.NewConfig()
		cfg.User = b.User
		cfg.Passwd = b.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(b.Host, strconv.Itoa(b.portOr(3306)))
		cfg.DBName = b.Database
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		return cfg.FormatDSN()
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(b.User, b.Password),
			Host:   net.JoinHostPort(b.Host, strconv.Itoa(b.portOr(5432))),
			Path:   "/" + b.Database,
		}
		return u.String()
	case "mongo":
		u := url.URL{
			Scheme: "mongodb",
			Host:   net.JoinHostPort(b.Host, strconv.Itoa(b.portOr(27017))),
		}
		if b.User != "" {
			u.User = url.UserPassword(b.User, b.Password)
		}
		return u.String()
	case "sqlite":
		return b.Database
	}
	return ""
}

func (b Backend) portOr(def int) int {
	if b.Port == 0 {
		return def
	}
	return b.Port
}
