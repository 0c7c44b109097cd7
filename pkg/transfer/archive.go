package transfer

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WriteArchive writes src (a file or a directory tree) to w as an
// uncompressed tar stream whose entries are rooted at dest. Entry names are
// relative ("/work/a.txt" becomes "work/a.txt") so the stream extracts with
// `tar -xf - -C /`. Directories, regular files and symlinks are archived;
// sockets, devices and pipes are skipped. It returns the number of bytes
// written to w.
func WriteArchive(w io.Writer, src, dest string) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tar.NewWriter(cw)

	root := strings.TrimPrefix(path.Clean(dest), "/")

	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = path.Join(root, filepath.ToSlash(rel))
		}
		if name == "" {
			// dest is "/": the root directory itself needs no entry
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		switch mode := info.Mode(); {
		case mode&fs.ModeSymlink != 0:
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		case mode.IsDir(), mode.IsRegular():
		default:
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("failed to build tar header for %q: %w", p, err)
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %q: %w", p, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(tw, p)
	})
	if err != nil {
		return cw.n, err
	}

	if err := tw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish archive: %w", err)
	}
	return cw.n, nil
}

func copyFile(w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to archive %q: %w", p, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
