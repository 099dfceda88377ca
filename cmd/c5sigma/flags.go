package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/5342/C5SIGMA/internal/runconfig"
)

// cliFlags holds command-line overrides for runconfig.Config.
type cliFlags struct {
	ConfigPath           string
	InputDir             string
	InputGlob            string
	DissectorPath        string
	ProtocolsCatalogPath string
	FieldsCatalogPath    string
	ValuesCatalogPath    string
	DecodesCatalogPath   string
	FixupsPath           string
	FilterPath           string
	Backend              string
	DSN                  string
	QueueDepth           int
	TableNamePrefix      string
	LogLevel             string
	LogFormat            string
	MetricsPort          int
	ShowVersion          bool
	ShowHelp             bool
	ValidateOnly         bool
}

func parseFlags() *cliFlags {
	f := &cliFlags{}

	flag.StringVar(&f.ConfigPath, "config",
		getEnv("C5SIGMA_CONFIG", ""),
		"Path to an optional JSON config overlay (env: C5SIGMA_CONFIG)")

	flag.StringVar(&f.InputDir, "input-dir",
		getEnv("C5SIGMA_INPUT_DIR", ""),
		"Directory containing capture files (env: C5SIGMA_INPUT_DIR)")

	flag.StringVar(&f.InputGlob, "input-glob",
		getEnv("C5SIGMA_INPUT_GLOB", ""),
		"Glob pattern selecting capture files within input-dir (env: C5SIGMA_INPUT_GLOB)")

	flag.StringVar(&f.DissectorPath, "dissector",
		getEnv("C5SIGMA_DISSECTOR", ""),
		"Path to the external dissector binary (env: C5SIGMA_DISSECTOR)")

	flag.StringVar(&f.ProtocolsCatalogPath, "protocols-catalog",
		getEnv("C5SIGMA_PROTOCOLS_CATALOG", ""),
		"Path to the protocols catalog emitted by the dissector (env: C5SIGMA_PROTOCOLS_CATALOG)")

	flag.StringVar(&f.FieldsCatalogPath, "fields-catalog",
		getEnv("C5SIGMA_FIELDS_CATALOG", ""),
		"Path to the fields catalog emitted by the dissector (env: C5SIGMA_FIELDS_CATALOG)")

	flag.StringVar(&f.ValuesCatalogPath, "values-catalog",
		getEnv("C5SIGMA_VALUES_CATALOG", ""),
		"Path to the value-strings catalog emitted by the dissector (env: C5SIGMA_VALUES_CATALOG)")

	flag.StringVar(&f.DecodesCatalogPath, "decodes-catalog",
		getEnv("C5SIGMA_DECODES_CATALOG", ""),
		"Path to the decodes catalog emitted by the dissector; read and discarded (env: C5SIGMA_DECODES_CATALOG)")

	flag.StringVar(&f.FixupsPath, "fixups",
		getEnv("C5SIGMA_FIXUPS", ""),
		"Optional external fixups rule file layered on the built-in rules (env: C5SIGMA_FIXUPS)")

	flag.StringVar(&f.FilterPath, "filter",
		getEnv("C5SIGMA_FILTER", ""),
		"Optional name filter/exclusion file (env: C5SIGMA_FILTER)")

	flag.StringVar(&f.Backend, "backend",
		getEnv("C5SIGMA_BACKEND", ""),
		"Database backend: mysql or mssql (env: C5SIGMA_BACKEND)")

	flag.StringVar(&f.DSN, "dsn",
		getEnv("C5SIGMA_DSN", ""),
		"Backend-specific data source name (env: C5SIGMA_DSN)")

	flag.IntVar(&f.QueueDepth, "queue-depth",
		getEnvInt("C5SIGMA_QUEUE_DEPTH", 0),
		"Row queue backlog cap, 0 keeps the default of 1000 (env: C5SIGMA_QUEUE_DEPTH)")

	flag.StringVar(&f.TableNamePrefix, "table-prefix",
		getEnv("C5SIGMA_TABLE_PREFIX", ""),
		"Prefix applied to every derived table name (env: C5SIGMA_TABLE_PREFIX)")

	flag.StringVar(&f.LogLevel, "log-level",
		getEnv("C5SIGMA_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: C5SIGMA_LOG_LEVEL)")

	flag.StringVar(&f.LogFormat, "log-format",
		getEnv("C5SIGMA_LOG_FORMAT", ""),
		"Log format: json, text (env: C5SIGMA_LOG_FORMAT)")

	flag.IntVar(&f.MetricsPort, "metrics-port",
		getEnvInt("C5SIGMA_METRICS_PORT", 0),
		"Prometheus metrics port, 0 keeps the default (env: C5SIGMA_METRICS_PORT)")

	flag.BoolVar(&f.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&f.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&f.ValidateOnly, "validate", false, "Validate configuration and exit")

	flag.Usage = printUsage

	flag.Parse()

	return f
}

// applyTo merges non-zero flag values over base, in the order
// defaults -> config file -> flags.
func (f *cliFlags) applyTo(cfg runconfig.Config) runconfig.Config {
	if f.InputDir != "" {
		cfg.InputDir = f.InputDir
	}
	if f.InputGlob != "" {
		cfg.InputGlob = f.InputGlob
	}
	if f.DissectorPath != "" {
		cfg.DissectorPath = f.DissectorPath
	}
	if f.ProtocolsCatalogPath != "" {
		cfg.ProtocolsCatalogPath = f.ProtocolsCatalogPath
	}
	if f.FieldsCatalogPath != "" {
		cfg.FieldsCatalogPath = f.FieldsCatalogPath
	}
	if f.ValuesCatalogPath != "" {
		cfg.ValuesCatalogPath = f.ValuesCatalogPath
	}
	if f.DecodesCatalogPath != "" {
		cfg.DecodesCatalogPath = f.DecodesCatalogPath
	}
	if f.FixupsPath != "" {
		cfg.FixupsPath = f.FixupsPath
	}
	if f.FilterPath != "" {
		cfg.FilterPath = f.FilterPath
	}
	if f.Backend != "" {
		cfg.Backend = runconfig.Backend(f.Backend)
	}
	if f.DSN != "" {
		cfg.DSN = f.DSN
	}
	if f.QueueDepth > 0 {
		cfg.QueueDepth = f.QueueDepth
	}
	if f.TableNamePrefix != "" {
		cfg.TableNamePrefix = f.TableNamePrefix
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
	if f.MetricsPort > 0 {
		cfg.MetricsPort = f.MetricsPort
	}
	return cfg
}

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - packet-capture ingestion into a relational database

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against a directory of captures with a JSON config overlay
  %s --config=/etc/c5sigma/config.json

  # Run with flags only
  %s --input-dir=/data/captures --dissector=/usr/bin/tshark-ish \
      --backend=mysql --dsn="user:pass@tcp(127.0.0.1:3306)/c5sigma"

  # Validate configuration only
  %s --config=/etc/c5sigma/config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
