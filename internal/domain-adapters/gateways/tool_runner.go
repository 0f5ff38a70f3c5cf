// Package gateways implements the external-tool adapters the assembly
// engine delegates to: layout dumping, signature verification,
// re-signing, container extraction, and packaging.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sglass68/firmware/internal/domain/entities"
)

// ToolRunner executes external firmware tools
type ToolRunner struct {
	defaultTimeout time.Duration
}

// NewToolRunner creates a new tool runner
func NewToolRunner() *ToolRunner {
	return &ToolRunner{
		defaultTimeout: 5 * time.Minute,
	}
}

// RunConfig contains configuration for one tool invocation.
type RunConfig struct {
	Args        []string
	WorkingDir  string
	Timeout     time.Duration
	Description string
}

// RunResult contains the result of a tool invocation
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Run executes one external tool and captures its output. A non-zero
// exit is returned as a PackError wrapping the invoking context.
func (r *ToolRunner) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: tool invocation is intentional, arguments come from the build spec
	cmd := exec.CommandContext(execCtx, config.Args[0], config.Args[1:]...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, entities.WrapPackError(entities.ReasonToolFailed, err,
				"%s (%s exit %d): %s", config.Description, config.Args[0],
				result.ExitCode, stderr.String())
		}
		if execCtx.Err() == context.DeadlineExceeded {
			result.ExitCode = -1
			return result, entities.WrapPackError(entities.ReasonToolFailed, err,
				"%s (%s) timed out after %v", config.Description, config.Args[0], timeout)
		}
		result.ExitCode = -1
		return result, fmt.Errorf("%s: run %s: %w", config.Description, config.Args[0], err)
	}

	result.ExitCode = 0
	return result, nil
}
