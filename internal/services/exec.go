package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

const (
	outputTailLines = 8
	maxOutputLine   = 1024 * 1024
)

// Command describes a single external program invocation.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onOutput func(string)) error
}

// CommandExecutor runs commands with os/exec, forwarding each stdout and
// stderr line to the output callback.
type CommandExecutor struct{}

// Run starts the command and waits for it. A non-zero exit is returned as an
// ErrExternalTool-marked error carrying the last lines of output.
func (CommandExecutor) Run(ctx context.Context, c Command, onOutput func(string)) error {
	binary := strings.TrimSpace(c.Binary)
	if binary == "" {
		return Wrap(ErrConfiguration, "", "exec", "empty binary", nil)
	}
	cmd := exec.CommandContext(ctx, binary, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Wrap(ErrExternalTool, binary, "stdout pipe", "", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Wrap(ErrExternalTool, binary, "stderr pipe", "", err)
	}
	if err := cmd.Start(); err != nil {
		return Wrap(ErrExternalTool, binary, "start", "", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		tail    []string
		scanErr error
		once    sync.Once
	)

	record := func(line string) {
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > outputTailLines {
			tail = tail[len(tail)-outputTailLines:]
		}
		mu.Unlock()
		if onOutput != nil {
			onOutput(line)
		}
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			record(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
			// Keep reading so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Wrap(ErrExternalTool, binary, "scan output", "", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		mu.Lock()
		detail := strings.Join(tail, " | ")
		mu.Unlock()
		return Wrap(ErrExternalTool, binary, "wait", detail, err)
	}
	return nil
}
