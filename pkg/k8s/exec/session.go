package exec

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/epics-containers/kodman/pkg/defaults"
	"github.com/epics-containers/kodman/pkg/errors"
)

// DefaultFlushInterval bounds how long an unterminated output line is held back.
const DefaultFlushInterval = defaults.ExecFlushInterval

// Streams are the caller-side ends of an exec channel. A nil Stdin runs the
// command without input; nil Stdout or Stderr discard that stream.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	// ExitCode is the remote exit status, 0 when the channel closed without one.
	ExitCode int
}

// Session runs commands over exec channels.
type Session struct {
	opener        Opener
	flushInterval time.Duration
	log           *slog.Logger
}

// NewSession returns a Session using opener. A non-positive flushInterval
// selects DefaultFlushInterval.
func NewSession(opener Opener, flushInterval time.Duration, log *slog.Logger) *Session {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		opener:        opener,
		flushInterval: flushInterval,
		log:           log,
	}
}

// Run executes req and relays its output to streams until the remote process
// exits. A non-zero remote exit is reported in Result, not as an error.
// Failures of the channel itself are ErrCodeExecChannel errors.
func (s *Session) Run(ctx context.Context, req Request, streams Streams) (Result, error) {
	req.Stdin = streams.Stdin != nil
	log := s.log.With(slog.String("pod", req.Pod), slog.String("command", strings.Join(req.Argv, " ")))

	executor, err := s.opener.Open(ctx, req)
	if err != nil {
		return Result{}, errors.WrapWithContext(errors.ErrCodeExecChannel,
			fmt.Sprintf("failed to open exec channel to pod %q", req.Pod), err,
			map[string]any{"pod": req.Pod, "argv": req.Argv})
	}

	stdout := newLineWriter(streams.Stdout)
	stderr := newLineWriter(streams.Stderr)

	log.Debug("execution start")

	done := make(chan struct{})
	var streamErr error
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		streamErr = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdin:  streams.Stdin,
			Stdout: stdout,
			Stderr: stderr,
			Tty:    false,
		})
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				if err := stdout.FlushPartial(); err != nil {
					return err
				}
				if err := stderr.FlushPartial(); err != nil {
					return err
				}
			}
		}
	})
	flushErr := g.Wait()

	if err := stdout.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	if err := stderr.Close(); err != nil && flushErr == nil {
		flushErr = err
	}

	log.Debug("execution complete")

	var exitErr utilexec.ExitError
	switch {
	case streamErr == nil:
	case stderrors.As(streamErr, &exitErr) && exitErr.Exited():
		log.Debug("command exited", slog.Int("code", exitErr.ExitStatus()))
		if flushErr != nil {
			log.Warn("failed to relay command output", slog.String("error", flushErr.Error()))
		}
		return Result{ExitCode: exitErr.ExitStatus()}, nil
	case ctx.Err() != nil:
		return Result{}, fmt.Errorf("exec in pod %q interrupted: %w", req.Pod, ctx.Err())
	default:
		return Result{}, errors.WrapWithContext(errors.ErrCodeExecChannel,
			fmt.Sprintf("exec channel to pod %q failed", req.Pod), streamErr,
			map[string]any{"pod": req.Pod, "argv": req.Argv})
	}

	if flushErr != nil {
		return Result{}, errors.Wrap(errors.ErrCodeExecChannel, "failed to relay command output", flushErr)
	}
	return Result{}, nil
}
