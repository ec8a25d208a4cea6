package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/espaidedades/ingest/internal/ingest"
)

// Default input file locations, matching the spreadsheet export names.
const (
	defaultMasterPath      = "data/Espai de Dades - MASTER.csv"
	defaultDictionaryPath  = "data/Espai de Dades - Dictionary.csv"
	defaultAmbitsPath      = "data/Espai de Dades - Àmbits.csv"
	defaultCollectivesPath = "data/Espai de Dades - Col·lectius.csv"
)

// Config holds the application configuration loaded from flags, environment
// variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// Catalog access
	APIKey string
	APIURL string

	// Input files
	MasterPath      string
	DictionaryPath  string
	AmbitsPath      string
	CollectivesPath string
}

// LoadConfig loads configuration in order of precedence:
// 1. Command-line flags (handled by cobra, applied later)
// 2. Environment variables
// 3. .env files
// 4. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindCredentials()

	config := &Config{
		APIKey: viper.GetString("ckan_api_key"),
		APIURL: viper.GetString("ckan_url"),

		MasterPath:      stringOrDefault(viper.GetString("master_path"), defaultMasterPath),
		DictionaryPath:  stringOrDefault(viper.GetString("dictionary_path"), defaultDictionaryPath),
		AmbitsPath:      stringOrDefault(viper.GetString("ambits_path"), defaultAmbitsPath),
		CollectivesPath: stringOrDefault(viper.GetString("collectives_path"), defaultCollectivesPath),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.APIURL == "" {
		config.APIURL = ingest.DefaultAPIURL
	}

	return config, nil
}

// bindCredentials wires the credential env vars, accepting both the
// CKAN-prefixed names and the short forms the original tooling used.
func bindCredentials() {
	_ = viper.BindEnv("ckan_api_key", "CKAN_API_KEY", "API_KEY")
	_ = viper.BindEnv("ckan_url", "CKAN_URL", "API_URL")
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// UpdateFromFlags applies parsed persistent flag values, which take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

func stringOrDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// getEnvOrDefault returns an environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
