package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/epics-containers/kodman/pkg/defaults"
	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/k8s/exec"
)

// DefaultExtractCommand unpacks a tar stream from stdin at the filesystem root.
var DefaultExtractCommand = defaults.ExtractCommand()

// Executor runs a command in a Pod. *exec.Session implements it.
type Executor interface {
	Run(ctx context.Context, req exec.Request, streams exec.Streams) (exec.Result, error)
}

// Copier copies volumes into Pods of one namespace.
type Copier struct {
	exec      Executor
	namespace string
	container string
	extract   []string
	log       *slog.Logger
}

// NewCopier returns a Copier. An empty extract selects DefaultExtractCommand.
func NewCopier(executor Executor, namespace, container string, extract []string, log *slog.Logger) *Copier {
	if len(extract) == 0 {
		extract = DefaultExtractCommand
	}
	if log == nil {
		log = slog.Default()
	}
	return &Copier{
		exec:      executor,
		namespace: namespace,
		container: container,
		extract:   extract,
		log:       log,
	}
}

// Copy transfers mounts into pod in order and stops at the first failure.
// All failures are ErrCodeTransferFailed errors.
func (c *Copier) Copy(ctx context.Context, pod string, mounts []VolumeMount) error {
	for _, m := range mounts {
		if err := c.copyOne(ctx, pod, m); err != nil {
			transferTotal.WithLabelValues("error").Inc()
			return err
		}
		transferTotal.WithLabelValues("success").Inc()
	}
	return nil
}

func (c *Copier) copyOne(ctx context.Context, pod string, m VolumeMount) error {
	log := c.log.With(slog.String("pod", pod), slog.String("source", m.Source))

	info, err := os.Stat(m.Source)
	if err != nil {
		return transferError(m, "failed to read source", err)
	}

	destIsDir := strings.HasSuffix(m.Destination, "/")
	if !info.IsDir() && !destIsDir {
		destIsDir, err = c.isDir(ctx, pod, path.Clean(m.Destination))
		if err != nil {
			return transferError(m, "failed to inspect destination", err)
		}
	}
	dest := EffectiveDestination(m, info.IsDir(), destIsDir)

	log.Info("transferring volume", slog.String("destination", dest))

	pr, pw := io.Pipe()
	var written int64
	var g errgroup.Group
	g.Go(func() error {
		n, err := WriteArchive(pw, m.Source, dest)
		written = n
		pw.CloseWithError(err)
		return err
	})

	var out outputBuffer
	res, runErr := c.exec.Run(ctx, exec.Request{
		Namespace: c.namespace,
		Pod:       pod,
		Container: c.container,
		Argv:      c.extract,
	}, exec.Streams{
		Stdin:  pr,
		Stdout: &out,
		Stderr: &out,
	})
	// unblocks the archive writer if extraction stopped reading early
	pr.Close()
	archiveErr := g.Wait()

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line != "" {
			log.Debug("extract output", slog.String("line", line))
		}
	}

	switch {
	case runErr != nil:
		return transferError(m, "failed to run extraction", runErr)
	case res.ExitCode != 0:
		return transferError(m, fmt.Sprintf("extraction exited with code %d: %s",
			res.ExitCode, strings.TrimSpace(out.String())), nil)
	case archiveErr != nil:
		return transferError(m, "failed to build archive", archiveErr)
	}

	transferBytes.Add(float64(written))
	log.Info("transferred volume",
		slog.String("destination", dest),
		slog.String("size", humanize.Bytes(uint64(written))))
	return nil
}

// isDir asks the Pod whether p is a directory.
func (c *Copier) isDir(ctx context.Context, pod, p string) (bool, error) {
	res, err := c.exec.Run(ctx, exec.Request{
		Namespace: c.namespace,
		Pod:       pod,
		Container: c.container,
		Argv:      []string{"test", "-d", p},
	}, exec.Streams{})
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("test -d %s exited with code %d", p, res.ExitCode)
	}
}

// outputBuffer collects stdout and stderr of one exec. The streams are
// copied from separate goroutines.
type outputBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func transferError(m VolumeMount, msg string, cause error) error {
	return errors.WrapWithContext(errors.ErrCodeTransferFailed,
		fmt.Sprintf("volume %s: %s", m, msg), cause,
		map[string]any{"source": m.Source, "destination": m.Destination})
}
