// Package ml connects segment scoring and feedback training to the safety
// model engine, either as an external process or in-process.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/ml/engine"
)

// ErrEngine wraps every failure reported by or about the engine.
var ErrEngine = errors.New("ml engine failed")

const defaultProcessTimeout = 10 * time.Second

// Runner executes one engine request.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (*engine.Response, error)
}

// ProcessConfig configures a ProcessRunner.
type ProcessConfig struct {
	// Command is the program and its arguments, e.g. ["mlengine"] or
	// ["python3", "ml_engine.py"].
	Command []string
	Dir     string
	// Env is appended to the current environment.
	Env    []string
	Logger zerolog.Logger

	// Timeout bounds an invocation whose context carries no deadline
	// (default: 10s). A caller's deadline always takes precedence.
	Timeout time.Duration
}

// ProcessRunner spawns the engine once per request, writing the request to
// stdin and reading one JSON response from stdout.
type ProcessRunner struct {
	command []string
	dir     string
	env     []string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProcessRunner validates cfg and returns a runner.
func NewProcessRunner(cfg ProcessConfig) (*ProcessRunner, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("ml engine command is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	return &ProcessRunner{
		command: cfg.Command,
		dir:     cfg.Dir,
		env:     cfg.Env,
		timeout: timeout,
		logger:  cfg.Logger,
	}, nil
}

// ParseCommand splits a command line on whitespace.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

// Run implements Runner.
func (p *ProcessRunner) Run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrEngine, err)
	}

	budget := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...) //nolint:gosec // command comes from configuration
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s timed out after %s", ErrEngine, req.Command, budget.Round(time.Millisecond))
	}

	var resp engine.Response
	decodeErr := json.Unmarshal(stdout.Bytes(), &resp)

	if runErr != nil {
		detail := resp.Error
		if detail == "" {
			detail = strings.TrimSpace(stderr.String())
		}
		return nil, fmt.Errorf("%w: %s: %s: %w", ErrEngine, req.Command, detail, runErr)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s: decoding response: %w", ErrEngine, req.Command, decodeErr)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrEngine, req.Command, resp.Error)
	}

	p.logger.Debug().
		Str("command", string(req.Command)).
		Dur("duration", elapsed).
		Msg("ml engine call completed")

	return &resp, nil
}

// Handler serves engine requests in-process. *engine.Engine implements it.
type Handler interface {
	Handle(req engine.Request) (*engine.Response, error)
}

// LocalRunner runs the engine in-process against a data directory.
type LocalRunner struct {
	Engine Handler
}

type handled struct {
	resp *engine.Response
	err  error
}

// Run implements Runner. It returns when ctx ends even if the engine is still
// busy; the call then finishes in the background.
func (l LocalRunner) Run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngine, err)
	}

	done := make(chan handled, 1)
	go func() {
		resp, err := l.Engine.Handle(req)
		done <- handled{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrEngine, req.Command, ctx.Err())
	case h := <-done:
		if h.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEngine, req.Command, h.err)
		}
		return h.resp, nil
	}
}

var (
	_ Runner  = (*ProcessRunner)(nil)
	_ Runner  = LocalRunner{}
	_ Handler = (*engine.Engine)(nil)
)
