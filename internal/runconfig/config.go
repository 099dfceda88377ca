// Package runconfig resolves the command-line flags and optional JSON
// overlay file into a single validated Config used to drive one run of the
// ingestion pipeline.
package runconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// Backend identifies which dbwriter backend a run targets.
type Backend string

const (
	BackendMySQL Backend = "mysql"
	BackendMSSQL Backend = "mssql"
)

// Config holds everything a run needs: where to read capture input from,
// how to invoke the dissector, which database to write to, and how the
// pipeline's internal concurrency is sized.
type Config struct {
	// InputDir is the directory scanned for capture files matching InputGlob.
	InputDir string `json:"input_dir"`

	// InputGlob selects capture files within InputDir, e.g. "*.pcap".
	InputGlob string `json:"input_glob"`

	// DissectorPath is the path to the external dissector binary.
	DissectorPath string `json:"dissector_path"`

	// DissectorArgs are extra arguments passed to the dissector, after the
	// capture file path.
	DissectorArgs []string `json:"dissector_args"`

	// ProtocolsCatalogPath, FieldsCatalogPath, ValuesCatalogPath, and
	// DecodesCatalogPath locate the four tab-delimited catalogs the
	// dissector publishes for this run; all four are loaded once before any
	// capture file is processed. DecodesCatalogPath is read and discarded.
	ProtocolsCatalogPath string `json:"protocols_catalog_path"`
	FieldsCatalogPath    string `json:"fields_catalog_path"`
	ValuesCatalogPath    string `json:"values_catalog_path"`
	DecodesCatalogPath   string `json:"decodes_catalog_path"`

	// FixupsPath is an optional external fixups rule file layered on top of
	// the built-in rule set. Empty means built-in rules only.
	FixupsPath string `json:"fixups_path"`

	// FilterPath is an optional filter/name-exclusion file.
	FilterPath string `json:"filter_path"`

	// Backend selects which dbwriter backend handles the run.
	Backend Backend `json:"backend"`

	// DSN is the backend-specific data source name.
	DSN string `json:"dsn"`

	// QueueDepth is the row queue's backlog cap (default 1000).
	QueueDepth int `json:"queue_depth"`

	// TableNamePrefix is prepended to every table name derived from a
	// protocol's short name.
	TableNamePrefix string `json:"table_name_prefix"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	MetricsPort int `json:"metrics_port"`

	// DisableForeignKeys skips parent/sourcefile FOREIGN KEY creation
	// entirely, for databases or load profiles where constraint checks are
	// too costly during ingestion.
	DisableForeignKeys bool `json:"disable_foreign_keys"`

	// DropByteColumns discards byte-sequence values instead of writing them,
	// to avoid storage blowup from large binary payloads.
	DropByteColumns bool `json:"drop_byte_columns"`

	// EightBitStrings selects the 8000-char string cap (e.g. MySQL VARCHAR)
	// instead of the 4000-char cap used for 16-bit-native string types
	// (e.g. SQL Server NVARCHAR).
	EightBitStrings bool `json:"eight_bit_strings"`
}

// Default returns the baseline configuration applied before flags and any
// config file are merged in.
func Default() Config {
	return Config{
		InputGlob:       "*.pcap",
		Backend:         BackendMySQL,
		QueueDepth:      1000,
		TableNamePrefix: "",
		LogLevel:        "info",
		LogFormat:       "json",
		MetricsPort:     9090,
	}
}

// LoadFile reads a JSON overlay file and applies it on top of base. Fields
// absent from the file are left untouched. cmd/c5sigma merges defaults, then
// this file, then non-empty flags, and validates last.
func LoadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, xerrors.WrapInvalid(err, "runconfig", "LoadFile", "read config file")
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return base, xerrors.WrapInvalid(err, "runconfig", "LoadFile", "parse config file")
	}
	return base, nil
}

// Validate checks that the configuration is complete and internally
// consistent before the run starts. Validation never mutates the config; a
// non-nil error means the run must not proceed.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate", "input_dir is required")
	}
	if info, err := os.Stat(c.InputDir); err != nil || !info.IsDir() {
		return xerrors.WrapInvalid(xerrors.ErrInputDirUnreadable, "runconfig", "Validate",
			fmt.Sprintf("input_dir %q is not a readable directory", c.InputDir))
	}
	if c.DissectorPath == "" {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate", "dissector_path is required")
	}
	for _, p := range []string{c.ProtocolsCatalogPath, c.FieldsCatalogPath, c.ValuesCatalogPath} {
		if p == "" {
			return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate",
				"protocols_catalog_path, fields_catalog_path, and values_catalog_path are required")
		}
		if _, err := os.Stat(p); err != nil {
			return xerrors.WrapInvalid(err, "runconfig", "Validate", fmt.Sprintf("catalog file %q not readable", p))
		}
	}
	if _, err := exec.LookPath(c.DissectorPath); err != nil {
		return xerrors.WrapInvalid(xerrors.ErrDissectorNotFound, "runconfig", "Validate",
			fmt.Sprintf("dissector_path %q not found or not executable", c.DissectorPath))
	}
	if c.DSN == "" {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate", "dsn is required")
	}
	switch c.Backend {
	case BackendMySQL, BackendMSSQL:
	default:
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate",
			fmt.Sprintf("backend must be %q or %q, got %q", BackendMySQL, BackendMSSQL, c.Backend))
	}
	if c.QueueDepth <= 0 {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate", "queue_depth must be positive")
	}
	if !contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate",
			fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}
	if !contains([]string{"json", "text"}, c.LogFormat) {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate",
			fmt.Sprintf("invalid log_format %q", c.LogFormat))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return xerrors.WrapInvalid(xerrors.ErrInvalidInput, "runconfig", "Validate", "invalid metrics_port")
	}
	if c.FixupsPath != "" {
		if _, err := os.Stat(c.FixupsPath); err != nil {
			return xerrors.WrapInvalid(err, "runconfig", "Validate", "fixups_path not readable")
		}
	}
	if c.FilterPath != "" {
		if _, err := os.Stat(c.FilterPath); err != nil {
			return xerrors.WrapInvalid(err, "runconfig", "Validate", "filter_path not readable")
		}
	}
	return nil
}

// CaptureGlob returns the absolute glob pattern matching capture files.
func (c Config) CaptureGlob() string {
	return filepath.Join(c.InputDir, c.InputGlob)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
