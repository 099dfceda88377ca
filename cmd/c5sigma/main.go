// Package main implements the entry point for c5sigma, a packet-capture
// ingestion pipeline: it drives an external protocol dissector, flattens
// its packet XML into relational rows, and writes them to a SQL database
// whose schema is discovered and evolved on the fly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/5342/C5SIGMA/internal/catalog"
	"github.com/5342/C5SIGMA/internal/dbwriter"
	"github.com/5342/C5SIGMA/internal/dbwriter/mssqlbackend"
	"github.com/5342/C5SIGMA/internal/dbwriter/mysqlbackend"
	"github.com/5342/C5SIGMA/internal/dissector"
	"github.com/5342/C5SIGMA/internal/fixups"
	"github.com/5342/C5SIGMA/internal/metric"
	"github.com/5342/C5SIGMA/internal/pdml"
	"github.com/5342/C5SIGMA/internal/rowqueue"
	"github.com/5342/C5SIGMA/internal/runconfig"
	"github.com/5342/C5SIGMA/internal/valuetype"
)

// Build information constants.
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "c5sigma"
)

// metricsShutdownTimeout bounds how long the metrics HTTP server is given to
// drain in-flight scrapes before the process exits.
const metricsShutdownTimeout = 5 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	if f.ShowVersion {
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}
	if f.ShowHelp {
		printUsage()
		return nil
	}

	cfg := runconfig.Default()
	if f.ConfigPath != "" {
		var err error
		cfg, err = runconfig.LoadFile(cfg, f.ConfigPath)
		if err != nil {
			return err
		}
	}
	cfg = f.applyTo(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if f.ValidateOnly {
		fmt.Println("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metricsRegistry := metric.NewRegistry()
	metrics := metricsRegistry.Core
	metricsServer := metric.NewServer(cfg.MetricsPort, "/metrics", metricsRegistry)
	metricsErrCh := metricsServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}()
	go func() {
		if err := <-metricsErrCh; err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	registry, err := loadSchema(cfg, logger)
	if err != nil {
		return err
	}

	fixupsEngine, err := loadFixups(cfg, logger)
	if err != nil {
		return err
	}

	filter, err := loadFilter(cfg)
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg.Backend)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := backend.Connect(ctx, cfg.DSN); err != nil {
		return err
	}
	defer backend.Close()

	typer := valuetype.NewTyper(registry, logger)

	q := rowqueue.New(cfg.QueueDepth, metrics)
	writer := dbwriter.NewWriter(backend, filter, dbwriter.Config{
		DisableForeignKeys: cfg.DisableForeignKeys,
		DropByteColumns:    cfg.DropByteColumns,
		EightBitStrings:    cfg.EightBitStrings,
	}, logger, metrics)

	writerErrCh := make(chan error, 1)
	go func() { writerErrCh <- writer.Run(ctx, q) }()

	runner := dissector.NewRunner(cfg.DissectorPath, cfg.DissectorArgs, logger, metrics)

	captures, err := filepath.Glob(cfg.CaptureGlob())
	if err != nil {
		return fmt.Errorf("glob capture files: %w", err)
	}

	var filesProcessed, packetsProcessed int
	for _, capturePath := range captures {
		n, err := processCapture(ctx, capturePath, runner, fixupsEngine, typer, q, cfg.TableNamePrefix, logger, metrics)
		if err != nil {
			logger.Warn("capture file failed", "path", capturePath, "error", err)
			continue
		}
		filesProcessed++
		packetsProcessed += n
	}

	q.Enqueue(nil) // sentinel: signal graceful shutdown
	writerErr := <-writerErrCh
	q.Close()

	logger.Info("run complete",
		"files_processed", filesProcessed,
		"packets_processed", packetsProcessed,
		"rows_written", writer.RowsWritten(),
		"rows_dropped", writer.RowsDropped())

	return writerErr
}

// processCapture dissects one capture file and enqueues its flattened rows,
// returning the number of packets read.
func processCapture(
	ctx context.Context,
	capturePath string,
	runner *dissector.Runner,
	fixupsEngine *fixups.Engine,
	typer *valuetype.Typer,
	q *rowqueue.Queue,
	tableNamePrefix string,
	logger *slog.Logger,
	metrics *metric.Metrics,
) (int, error) {
	sidecar, err := runner.Dissect(ctx, capturePath)
	if err != nil {
		return 0, err
	}
	defer sidecar.Close()

	reader := pdml.NewReader(sidecar, fixupsEngine, typer, logger)

	count := 0
	for {
		packet, err := reader.Next(ctx)
		if err != nil {
			break // io.EOF or an unrecoverable stream error ends this file
		}
		rows := pdml.FlattenPacket(packet, capturePath, tableNamePrefix)
		for _, row := range rows {
			q.Enqueue(row)
		}
		count++
	}
	return count, nil
}

func loadSchema(cfg runconfig.Config, logger *slog.Logger) (*catalog.Registry, error) {
	loader := catalog.NewLoader(logger)

	protocols, err := os.Open(cfg.ProtocolsCatalogPath)
	if err != nil {
		return nil, err
	}
	defer protocols.Close()
	if err := loader.LoadProtocols(protocols); err != nil {
		return nil, err
	}

	fields, err := os.Open(cfg.FieldsCatalogPath)
	if err != nil {
		return nil, err
	}
	defer fields.Close()
	if err := loader.LoadFields(fields); err != nil {
		return nil, err
	}

	values, err := os.Open(cfg.ValuesCatalogPath)
	if err != nil {
		return nil, err
	}
	defer values.Close()
	if err := loader.LoadValues(values); err != nil {
		return nil, err
	}

	if cfg.DecodesCatalogPath != "" {
		decodes, err := os.Open(cfg.DecodesCatalogPath)
		if err != nil {
			return nil, err
		}
		defer decodes.Close()
		if err := loader.LoadDecodes(decodes); err != nil {
			return nil, err
		}
	}

	return loader.Registry, nil
}

func loadFixups(cfg runconfig.Config, logger *slog.Logger) (*fixups.Engine, error) {
	engine := fixups.NewEngine(logger)
	if cfg.FixupsPath == "" {
		return engine, nil
	}
	f, err := os.Open(cfg.FixupsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := engine.LoadFile(f); err != nil {
		return nil, err
	}
	return engine, nil
}

func loadFilter(cfg runconfig.Config) (*dbwriter.Filter, error) {
	if cfg.FilterPath == "" {
		return dbwriter.NoopFilter(), nil
	}
	f, err := os.Open(cfg.FilterPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	filter, errs := dbwriter.LoadFilter(f)
	for _, e := range errs {
		slog.Warn("filter rule skipped", "error", e)
	}
	return filter, nil
}

func newBackend(b runconfig.Backend) (dbwriter.Backend, error) {
	switch b {
	case runconfig.BackendMySQL:
		return mysqlbackend.New(), nil
	case runconfig.BackendMSSQL:
		return mssqlbackend.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", b)
	}
}
