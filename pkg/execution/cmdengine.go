package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CmdEngine is an Engine backed by external commands, so any test framework
// that can list its tests and run a named subset can participate.
//
// The discover command prints a JSON array of TestDetails on stdout. The run
// command receives a runRequest as JSON on stdin and prints a runResponse on
// stdout. A non-zero exit status from the run command is not an engine error
// by itself; failed tests are reported through the outcomes.
type CmdEngine struct {
	discoverCmd []string
	runCmd      []string
	workDir     string
	logger      *zap.Logger
}

// runRequest is the payload handed to the run command on stdin.
type runRequest struct {
	All   bool     `json:"all"`
	Tests []string `json:"tests,omitempty"`
}

// runResponse is the payload expected from the run command on stdout.
type runResponse struct {
	Outcomes map[string]Outcome `json:"outcomes"`
}

// NewCmdEngine creates a command-backed engine. Commands are given as shell-
// word slices, e.g. ["./scripts/list-tests"].
func NewCmdEngine(discoverCmd, runCmd []string, workDir string, logger *zap.Logger) (*CmdEngine, error) {
	if len(discoverCmd) == 0 {
		return nil, errors.New("discover command is required")
	}
	if len(runCmd) == 0 {
		return nil, errors.New("run command is required")
	}
	return &CmdEngine{
		discoverCmd: discoverCmd,
		runCmd:      runCmd,
		workDir:     workDir,
		logger:      logger,
	}, nil
}

// ParseCommand splits a configured command string into shell words. Only
// whitespace splitting is applied; quoting is not interpreted.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

func (e *CmdEngine) DiscoverTests(ctx context.Context) ([]TestDetails, error) {
	cmd := exec.CommandContext(ctx, e.discoverCmd[0], e.discoverCmd[1:]...)
	cmd.Dir = e.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("discover command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	var details []TestDetails
	if err := json.Unmarshal(stdout.Bytes(), &details); err != nil {
		return nil, fmt.Errorf("decoding discover output: %w", err)
	}

	return details, nil
}

func (e *CmdEngine) RunTests(ctx context.Context, ids []string) (*Summary, error) {
	return e.run(ctx, runRequest{Tests: ids})
}

func (e *CmdEngine) RunAll(ctx context.Context) (*Summary, error) {
	return e.run(ctx, runRequest{All: true})
}

func (e *CmdEngine) run(ctx context.Context, req runRequest) (*Summary, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding run request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.runCmd[0], e.runCmd[1:]...)
	cmd.Dir = e.workDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
		}
		// Test frameworks conventionally exit non-zero when tests fail.
		// The outcomes on stdout are still authoritative.
		e.logger.Debug("run command exited non-zero",
			zap.Int("exit_code", exitErr.ExitCode()),
		)
	}

	var resp runResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decoding run output: %w", err)
	}

	return SummaryFromOutcomes(resp.Outcomes), nil
}
