package run

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/buildkite/roko"
	corev1 "k8s.io/api/core/v1"

	"github.com/epics-containers/kodman/pkg/defaults"
	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/k8s/exec"
	"github.com/epics-containers/kodman/pkg/k8s/pod"
	"github.com/epics-containers/kodman/pkg/transfer"
)

// DefaultCleanupTimeout bounds the deletion of a Pod after its run.
const DefaultCleanupTimeout = defaults.CleanupTimeout

// Options configures a Runner.
type Options struct {
	NamePrefix string
	// NameCollisionRetries is how many more times creation is attempted under
	// a fresh name when a generated name already exists.
	NameCollisionRetries int
	Placeholder          Placeholder
	// ExtractCommand unpacks volume archives inside the Pod.
	ExtractCommand    []string
	ExecFlushInterval time.Duration
	CleanupTimeout    time.Duration

	// Stdin is attached to interactive commands.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns Options relaying to discarded streams. Callers set
// Stdin, Stdout and Stderr.
func DefaultOptions() Options {
	return Options{
		NamePrefix:        DefaultNamePrefix,
		Placeholder:       DefaultPlaceholder(),
		ExtractCommand:    transfer.DefaultExtractCommand,
		ExecFlushInterval: exec.DefaultFlushInterval,
		CleanupTimeout:    DefaultCleanupTimeout,
	}
}

// Runner executes Requests as Pods.
type Runner struct {
	pods    *pod.Manager
	session *exec.Session
	copier  *transfer.Copier
	names   *NameGenerator
	opts    Options
	log     *slog.Logger
}

// NewRunner returns a Runner creating Pods with pods and exec'ing into them
// through opener.
func NewRunner(pods *pod.Manager, opener exec.Opener, opts Options, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if len(opts.Placeholder.Command) == 0 {
		opts.Placeholder = DefaultPlaceholder()
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = DefaultCleanupTimeout
	}
	if opts.NameCollisionRetries < 0 {
		opts.NameCollisionRetries = 0
	}

	session := exec.NewSession(opener, opts.ExecFlushInterval, log)
	return &Runner{
		pods:    pods,
		session: session,
		copier:  transfer.NewCopier(session, pods.Namespace(), ContainerName, opts.ExtractCommand, log),
		names:   NewNameGenerator(opts.NamePrefix),
		opts:    opts,
		log:     log,
	}
}

// Manifest returns the Pod that Run would create for req, without creating it.
func (r *Runner) Manifest(req Request) (*corev1.Pod, error) {
	if _, err := transfer.ParseVolumes(req.Volumes); err != nil {
		return nil, err
	}
	name, err := r.names.Generate(req)
	if err != nil {
		return nil, err
	}
	p, err := BuildPod(name, req, r.opts.Placeholder)
	if err != nil {
		return nil, err
	}
	p.Namespace = r.pods.Namespace()
	return p, nil
}

// Run executes req and returns the command's exit code. Errors mean the
// command did not run to completion; a non-zero exit is not an error.
//
// Once the Pod exists it is deleted on return when req.Remove is set or when
// no exit code was obtained. Deletion failures are logged only.
func (r *Runner) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			runTotal.WithLabelValues("error").Inc()
		case res.ExitCode != 0:
			runTotal.WithLabelValues("nonzero").Inc()
		default:
			runTotal.WithLabelValues("success").Inc()
		}
	}()

	mounts, err := transfer.ParseVolumes(req.Volumes)
	if err != nil {
		return Result{}, err
	}
	argv, err := req.Argv()
	if err != nil {
		return Result{}, err
	}

	h, err := r.create(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res.Name = h.Name
	log := r.log.With(slog.String("pod", h.Name))

	// AwaitReady returns a fresh handle; cleanup keeps the one from Create.
	created := h
	exited := false
	defer func() {
		if req.Remove || !exited {
			r.cleanup(ctx, created)
		} else {
			log.Info("pod left running", slog.String("namespace", created.Namespace))
		}
	}()

	ready, err := r.pods.AwaitReady(ctx, h)
	if err != nil {
		return res, err
	}
	h = ready

	if len(mounts) > 0 {
		if err = r.copier.Copy(ctx, h.Name, mounts); err != nil {
			return res, err
		}
	}

	streams := exec.Streams{
		Stdout: r.opts.Stdout,
		Stderr: r.opts.Stderr,
	}
	if req.Interactive {
		streams.Stdin = r.opts.Stdin
	}

	log.Info("running command")
	out, err := r.session.Run(ctx, exec.Request{
		Namespace: h.Namespace,
		Pod:       h.Name,
		Container: ContainerName,
		Argv:      argv,
	}, streams)
	if err != nil {
		return res, err
	}
	exited = true

	res.ExitCode = out.ExitCode
	runExitCode.Set(float64(out.ExitCode))
	log.Debug("command finished", slog.Int("exitCode", out.ExitCode))
	return res, nil
}

// Delete removes the named Pod and waits until it is gone.
func (r *Runner) Delete(ctx context.Context, name string) error {
	return r.pods.Delete(ctx, name)
}

// create submits the Pod for req, trying again under a fresh name on a
// collision as often as NameCollisionRetries allows.
func (r *Runner) create(ctx context.Context, req Request) (*pod.Handle, error) {
	attempts := 1
	if req.Name == "" {
		attempts += r.opts.NameCollisionRetries
	}

	retrier := roko.NewRetrier(
		roko.WithMaxAttempts(attempts),
		roko.WithStrategy(roko.Constant(0)),
	)
	return roko.DoFunc(ctx, retrier, func(rt *roko.Retrier) (*pod.Handle, error) {
		name, err := r.names.Generate(req)
		if err != nil {
			rt.Break()
			return nil, err
		}
		p, err := BuildPod(name, req, r.opts.Placeholder)
		if err != nil {
			rt.Break()
			return nil, err
		}

		h, err := r.pods.Create(ctx, p)
		if err != nil {
			if !errors.HasCode(err, errors.ErrCodeNameCollision) {
				rt.Break()
			} else {
				r.log.Warn("pod name already in use", slog.String("pod", name), slog.Int("attempt", rt.AttemptCount()))
			}
			return nil, err
		}
		return h, nil
	})
}

// cleanup deletes the Pod even if ctx is already cancelled.
func (r *Runner) cleanup(ctx context.Context, h *pod.Handle) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CleanupTimeout)
	defer cancel()

	if err := r.pods.Release(ctx, h); err != nil {
		cleanupTotal.WithLabelValues("error").Inc()
		r.log.Warn("failed to delete pod", slog.String("pod", h.Name), slog.String("error", err.Error()))
		return
	}
	cleanupTotal.WithLabelValues("success").Inc()
}
