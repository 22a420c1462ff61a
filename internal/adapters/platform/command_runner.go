// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package platform provides shared command execution functionality.
package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CommandRunner implements the CommandRunner port for real system commands.
// Output is always captured; nothing is written to the terminal.
type CommandRunner struct {
	logger *zap.Logger
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(logger *zap.Logger) *CommandRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CommandRunner{logger: logger}
}

// Execute runs a command and returns the result.
func (r *CommandRunner) Execute(ctx context.Context, name string, args ...string) error {
	_, err := r.run(ctx, name, args)

	return err
}

// ExecuteWithOutput runs a command and returns its stdout.
func (r *CommandRunner) ExecuteWithOutput(ctx context.Context, name string, args ...string) (string, error) {
	return r.run(ctx, name, args)
}

// CommandExists checks if a command is available on the system.
func (r *CommandRunner) CommandExists(name string) bool {
	_, err := exec.LookPath(name)

	return err == nil
}

func (r *CommandRunner) run(ctx context.Context, name string, args []string) (string, error) {
	r.logger.Debug("executing", zap.String("command", name), zap.Strings("args", args))

	// #nosec G204 - arguments are built by adapters, never by a shell
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("command %s cancelled: %w", name, ctxErr)
		}

		stderrOutput := strings.TrimSpace(stderr.String())
		if stderrOutput != "" {
			return stdout.String(), fmt.Errorf("command failed: %w (stderr: %s)", err, stderrOutput)
		}

		return stdout.String(), fmt.Errorf("command failed: %w", err)
	}

	return stdout.String(), nil
}

// ErrNoScript is returned by ScriptedRunner for commands without a script.
var ErrNoScript = errors.New("no scripted output")

// ScriptedRunner implements the CommandRunner port from canned outputs keyed
// by the full command line. It records every call.
type ScriptedRunner struct {
	mu       sync.Mutex
	outputs  map[string]string
	failures map[string]error
	calls    []string
}

// NewScriptedRunner creates an empty scripted runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		outputs:  make(map[string]string),
		failures: make(map[string]error),
	}
}

// SetOutput sets the output for a command line such as "adb shell getprop".
func (r *ScriptedRunner) SetOutput(command, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outputs[command] = output
}

// SetError makes a command line fail with err.
func (r *ScriptedRunner) SetError(command string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[command] = err
}

// Calls returns the command lines run so far.
func (r *ScriptedRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

// CallCount returns how often command was run.
func (r *ScriptedRunner) CallCount(command string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, call := range r.calls {
		if call == command {
			n++
		}
	}

	return n
}

// Execute runs a scripted command.
func (r *ScriptedRunner) Execute(ctx context.Context, name string, args ...string) error {
	_, err := r.ExecuteWithOutput(ctx, name, args...)

	return err
}

// ExecuteWithOutput returns the scripted output of a command.
func (r *ScriptedRunner) ExecuteWithOutput(_ context.Context, name string, args ...string) (string, error) {
	fullCommand := strings.TrimSpace(name + " " + strings.Join(args, " "))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, fullCommand)

	if err, ok := r.failures[fullCommand]; ok {
		return "", err
	}

	if output, ok := r.outputs[fullCommand]; ok {
		return output, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoScript, fullCommand)
}

// CommandExists always returns true.
func (r *ScriptedRunner) CommandExists(_ string) bool {
	return true
}
