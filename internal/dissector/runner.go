// Package dissector launches the external protocol-dissector binary
// against one capture file and hands back its per-input .data sidecar XML
// for streaming by internal/pdml.
package dissector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/5342/C5SIGMA/internal/metric"
	"github.com/5342/C5SIGMA/internal/xerrors"
)

// pollInterval is how often Dissect polls the child process for exit,
// mirroring the same ticker-poll idiom the row queue uses to avoid a
// platform-specific wait primitive.
const pollInterval = 500 * time.Millisecond

// Dissector child process status values for metric.Metrics.SetDissectorStatus.
const (
	statusNotStarted = 0
	statusRunning    = 1
	statusExitedOK   = 2
	statusExitedErr  = 3
)

// Runner invokes the external dissector binary once per capture file.
type Runner struct {
	binaryPath string
	extraArgs  []string
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// NewRunner returns a Runner bound to the configured dissector binary.
func NewRunner(binaryPath string, extraArgs []string, logger *slog.Logger, metrics *metric.Metrics) *Runner {
	return &Runner{binaryPath: binaryPath, extraArgs: extraArgs, logger: logger, metrics: metrics}
}

// Dissect runs the dissector against capturePath, redirecting its output to
// a per-input sidecar file capturePath+".data", and returns that sidecar
// opened for reading. The child's exit code is not checked: the PDML
// reader tolerates a truncated document from a dissector that died mid-run.
func (r *Runner) Dissect(ctx context.Context, capturePath string) (*os.File, error) {
	sidecarPath := capturePath + ".data"
	sidecar, err := os.Create(sidecarPath)
	if err != nil {
		return nil, xerrors.WrapTransient(err, "dissector", "Dissect", "create sidecar file")
	}

	args := append([]string{capturePath}, r.extraArgs...)
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)
	cmd.Stdout = sidecar
	cmd.Stderr = nil

	r.metrics.SetDissectorStatus(statusNotStarted)

	if err := cmd.Start(); err != nil {
		sidecar.Close()
		return nil, xerrors.WrapFatal(xerrors.ErrDissectorNotFound, "dissector", "Dissect",
			fmt.Sprintf("start %s: %s", r.binaryPath, err))
	}
	r.metrics.SetDissectorStatus(statusRunning)

	exitErr := r.waitPolling(cmd)
	sidecar.Close()

	if exitErr != nil {
		r.metrics.SetDissectorStatus(statusExitedErr)
	} else {
		r.metrics.SetDissectorStatus(statusExitedOK)
	}

	reader, err := os.Open(sidecarPath)
	if err != nil {
		return nil, xerrors.WrapTransient(err, "dissector", "Dissect", "reopen sidecar for reading")
	}
	return reader, nil
}

// waitPolling waits for cmd to exit, polling every pollInterval rather than
// blocking indefinitely on cmd.Wait, so a future caller can layer shutdown
// observation on top without a platform-specific process wait primitive.
// The exit code, once observed, is logged and returned but never propagated
// to the caller of Dissect.
func (r *Runner) waitPolling(cmd *exec.Cmd) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				r.logger.Debug("dissector process exited", "error", err)
			}
			return err
		case <-ticker.C:
			r.logger.Debug("dissector process still running", "pid", cmd.Process.Pid)
		}
	}
}
