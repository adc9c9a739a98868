package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultDiagnosticsTimeout bounds one external diagnostics run.
const DefaultDiagnosticsTimeout = 2 * time.Minute

// Runner executes the external diagnostics tool and captures its report.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
	Logger  hclog.Logger
}

// NewRunner returns a Runner for the given command with defaults filled in.
func NewRunner(command string, args []string, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		Command: command,
		Args:    args,
		Timeout: DefaultDiagnosticsTimeout,
		Logger:  logger,
	}
}

// Run invokes the diagnostics command in workspaceRoot and returns its
// stdout. A run that exceeds the timeout or exits non-zero is an error;
// the caller decides whether the batch can proceed without a report.
func (r *Runner) Run(ctx context.Context, workspaceRoot string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultDiagnosticsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.Logger.Info("running diagnostics", "command", r.Command, "dir", workspaceRoot)

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = workspaceRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("diagnostics timed out after %s", timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("diagnostics failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("diagnostics failed: %w", err)
	}

	r.Logger.Debug("diagnostics completed", "bytes", stdout.Len())
	return stdout.String(), nil
}
