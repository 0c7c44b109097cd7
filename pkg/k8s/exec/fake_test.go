package exec

import (
	"context"
	"io"
	"sync"

	"k8s.io/client-go/tools/remotecommand"
)

// fakeExecutor plays back canned output and records what it received.
type fakeExecutor struct {
	stdout string
	stderr string
	err    error
	// run, if set, replaces the canned behaviour.
	run func(ctx context.Context, opts remotecommand.StreamOptions) error

	mu       sync.Mutex
	gotStdin []byte
	gotTty   bool
}

func (f *fakeExecutor) Stream(opts remotecommand.StreamOptions) error {
	return f.StreamWithContext(context.Background(), opts)
}

func (f *fakeExecutor) StreamWithContext(ctx context.Context, opts remotecommand.StreamOptions) error {
	f.mu.Lock()
	f.gotTty = opts.Tty
	f.mu.Unlock()

	if f.run != nil {
		return f.run(ctx, opts)
	}
	if opts.Stdin != nil {
		in, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return err
		}
		f.mu.Lock()
		f.gotStdin = in
		f.mu.Unlock()
	}
	if f.stdout != "" {
		if _, err := io.WriteString(opts.Stdout, f.stdout); err != nil {
			return err
		}
	}
	if f.stderr != "" {
		if _, err := io.WriteString(opts.Stderr, f.stderr); err != nil {
			return err
		}
	}
	return f.err
}

type fakeOpener struct {
	exec remotecommand.Executor
	err  error

	got []Request
}

func (f *fakeOpener) Open(_ context.Context, req Request) (remotecommand.Executor, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.exec, nil
}

// syncBuffer is a goroutine-safe bytes buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
