package native

import (
	"bufio"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"uipreview/internal/core/errors"
)

// readyMarker is the literal line the renderer process prints on stdout
// once its pipe server is accepting connections.
const readyMarker = "READY"

// process wraps the external renderer executable. The done channel is
// closed when the process exits, after exitErr is set.
type process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error
}

// startProcess spawns `exe --pipe <name>` and blocks until the readiness
// marker appears on stdout or the startup timeout elapses. A process
// that exits before signaling readiness is a hard failure.
func startProcess(ctx context.Context, exe, pipeName string, startupTimeout time.Duration, log *slog.Logger) (*process, error) {
	cmd := exec.Command(exe, "--pipe", pipeName)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInitFailed, "renderer stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInitFailed, "renderer stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInitFailed, "start renderer process").
			WithContext(errors.CtxPath, exe)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			log.Warn("renderer stderr", "line", sc.Text())
		}
	}()

	ready := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(stdout)
		signaled := false
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if !signaled && line == readyMarker {
				signaled = true
				close(ready)
				continue
			}
			log.Debug("renderer stdout", "line", line)
		}
	}()

	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
	}()

	timer := time.NewTimer(startupTimeout)
	defer timer.Stop()
	select {
	case <-ready:
		return p, nil
	case <-p.done:
		return nil, errors.New(errors.CodeInitFailed, "renderer process exited before signaling readiness")
	case <-timer.C:
		p.kill()
		return nil, errors.New(errors.CodeInitFailed, "timed out waiting for renderer readiness")
	case <-ctx.Done():
		p.kill()
		return nil, errors.Wrap(ctx.Err(), errors.CodeInitFailed, "renderer startup canceled")
	}
}

func (p *process) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// exited reports whether the process has terminated.
func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
