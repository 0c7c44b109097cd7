package exec

import (
	"bytes"
	"io"
	"sync"
)

const trailingSpace = " \t\r"

// lineWriter forwards complete lines with trailing whitespace removed and
// holds back an unterminated tail until more output, FlushPartial or Close.
type lineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func newLineWriter(w io.Writer) *lineWriter {
	if w == nil {
		w = io.Discard
	}
	return &lineWriter{w: w}
}

// Write implements io.Writer.
func (l *lineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)

	var out []byte
	rest := l.buf
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		out = append(out, bytes.TrimRight(rest[:i], trailingSpace)...)
		out = append(out, '\n')
		rest = rest[i+1:]
	}
	l.buf = append(l.buf[:0], rest...)

	if len(out) > 0 {
		if _, err := l.w.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// FlushPartial writes out a held-back unterminated line as is.
func (l *lineWriter) FlushPartial() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buf) == 0 {
		return nil
	}
	_, err := l.w.Write(l.buf)
	l.buf = l.buf[:0]
	return err
}

// Close writes out a held-back unterminated line with trailing whitespace
// removed.
func (l *lineWriter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := bytes.TrimRight(l.buf, trailingSpace)
	l.buf = l.buf[:0]
	if len(tail) == 0 {
		return nil
	}
	_, err := l.w.Write(tail)
	return err
}
