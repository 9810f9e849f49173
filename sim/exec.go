package sim

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// stderrTailBytes bounds how much captured engine output an ExecutionError
// carries.
const stderrTailBytes = 4096

// ExecRunner invokes an external simulation engine inside a working
// directory. It centralizes the process contract shared by all backends:
// the engine runs with the working directory as cwd, reads its input from a
// fixed relative path the backend wrote beforehand, and leaves its output at
// fixed relative paths. Exit code and stderr are the failure surface.
type ExecRunner struct {
	Binary       string
	Args         []string
	Timeout      time.Duration // 0 = no timeout
	PollInterval time.Duration // 0 = default 2s
}

// Available reports whether the engine binary resolves on PATH.
func (r *ExecRunner) Available() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

// Run launches the engine and blocks until it exits. poll, if non-nil, is
// called between polling intervals while the process runs (backends use it
// to derive progress from growing output artifacts); the cancellation
// signal is checked on the same cadence. On cancellation the process is
// killed and Run returns an error wrapping ctx.Err(). Non-zero exit and
// timeout are returned as *ExecutionError.
func (r *ExecRunner) Run(ctx context.Context, workdir string, poll func()) error {
	runCtx := ctx
	var timedOut func() bool = func() bool { return false }
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
		timedOut = func() bool { return runCtx.Err() == context.DeadlineExceeded }
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.Binary, r.Args...)
	cmd.Dir = workdir
	cmd.Stdout = &output
	cmd.Stderr = &output

	logrus.Debugf("exec: %s %v in %s", r.Binary, r.Args, workdir)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting engine %s: %w", r.Binary, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	interval := r.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case err := <-waitErr:
			if err == nil {
				return nil
			}
			if ctx.Err() == context.Canceled {
				return fmt.Errorf("engine %s: %w", r.Binary, ctx.Err())
			}
			execErr := &ExecutionError{
				Engine:     r.Binary,
				ExitCode:   cmd.ProcessState.ExitCode(),
				Timeout:    timedOut(),
				StderrTail: tail(output.Bytes(), stderrTailBytes),
			}
			logrus.Warnf("exec: %s failed: %v", r.Binary, execErr)
			return execErr
		case <-ticker.C:
			if poll != nil {
				poll()
			}
		}
	}
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
