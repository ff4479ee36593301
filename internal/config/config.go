// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	LogLevel    string
	CORSOrigins []string
	Corpus      CorpusConfig
	Output      OutputConfig
	Store       StoreConfig
	Window      int
	Workers     int
}

// CorpusConfig locates the numbered trace files of the corpus.
type CorpusConfig struct {
	Dir    string
	Prefix string
	First  int
	Last   int
}

// OutputConfig names the artifacts written by a normalization run.
type OutputConfig struct {
	Dir          string
	ExamplesFile string
	DomainFile   string
	ManifestFile string
}

// StoreConfig controls run persistence.
type StoreConfig struct {
	Enabled bool
	DBPath  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Corpus: CorpusConfig{
			Dir:    getEnv("LOHMM_CORPUS_DIR", "../Data/UnixData/unix-data/computer-scientists"),
			Prefix: getEnv("LOHMM_SOURCE_PREFIX", "scientist-"),
			First:  getEnvInt("LOHMM_SOURCE_FIRST", 1),
			Last:   getEnvInt("LOHMM_SOURCE_LAST", 52),
		},
		Output: OutputConfig{
			Dir:          getEnv("LOHMM_OUTPUT_DIR", "."),
			ExamplesFile: getEnv("LOHMM_EXAMPLES_FILE", "lohmm_examples.dat"),
			DomainFile:   getEnv("LOHMM_DOMAIN_FILE", "lohmm_dir_domain.txt"),
			ManifestFile: getEnv("LOHMM_MANIFEST_FILE", "lohmm_manifest.json"),
		},
		Store: StoreConfig{
			Enabled: getEnvBool("STORE_ENABLED", true),
			DBPath:  getEnv("DB_PATH", "./data/lohmm.db"),
		},
		Window:  getEnvInt("LOHMM_WINDOW", 10),
		Workers: getEnvInt("LOHMM_WORKERS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Corpus.Dir == "" {
		return fmt.Errorf("LOHMM_CORPUS_DIR cannot be empty")
	}
	if c.Corpus.First < 0 || c.Corpus.Last < c.Corpus.First {
		return fmt.Errorf("invalid source range %d..%d", c.Corpus.First, c.Corpus.Last)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("LOHMM_OUTPUT_DIR cannot be empty")
	}
	if c.Output.ExamplesFile == "" || c.Output.DomainFile == "" || c.Output.ManifestFile == "" {
		return fmt.Errorf("output file names cannot be empty")
	}
	if c.Window < 0 {
		return fmt.Errorf("LOHMM_WINDOW must be >= 0")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("LOHMM_WORKERS must be > 0")
	}
	if c.Store.Enabled && c.Store.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when STORE_ENABLED is set")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
