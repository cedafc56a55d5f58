package logging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileWriter is the operator log sink. Once the file would exceed
// maxSizeBytes it is renamed to path.1 (older backups shift up) and a fresh
// file is started.
type RotatingFileWriter struct {
	mu           sync.Mutex
	path         string
	maxSizeBytes int64
	maxBackups   int
	file         *os.File
	size         int64
}

func NewRotatingFileWriter(path string, maxSizeBytes int64, maxBackups int) (*RotatingFileWriter, error) {
	if path == "" {
		return nil, errors.New("log path is required")
	}
	if maxSizeBytes <= 0 {
		return nil, errors.New("maxSizeBytes must be > 0")
	}
	if maxBackups < 0 {
		maxBackups = 0
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	w := &RotatingFileWriter{path: path, maxSizeBytes: maxSizeBytes, maxBackups: maxBackups}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	if w.size > w.maxSizeBytes {
		if err := w.rotateLocked(); err != nil {
			w.file.Close()
			return nil, err
		}
	}
	return w, nil
}

// Tee returns a writer that sends every log line to stdout and to the rotating file.
func Tee(w *RotatingFileWriter) io.Writer {
	return io.MultiWriter(os.Stdout, w)
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	// A single oversized line still goes into an empty file.
	if w.size > 0 && w.size+int64(len(p)) > w.maxSizeBytes {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) open(mode int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	if mode == os.O_APPEND {
		if st, err := f.Stat(); err == nil {
			w.size = st.Size()
		}
	}
	return nil
}

func (w *RotatingFileWriter) rotateLocked() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	if w.maxBackups == 0 {
		if err := removeIfExists(w.path); err != nil {
			return err
		}
	} else if err := w.shiftBackups(); err != nil {
		return err
	}

	return w.open(os.O_TRUNC)
}

func (w *RotatingFileWriter) shiftBackups() error {
	if err := removeIfExists(w.backup(w.maxBackups)); err != nil {
		return err
	}
	for idx := w.maxBackups - 1; idx >= 0; idx-- {
		src := w.backup(idx)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return err
		}
		dst := w.backup(idx + 1)
		if err := removeIfExists(dst); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// backup(0) is the live file.
func (w *RotatingFileWriter) backup(idx int) string {
	if idx == 0 {
		return w.path
	}
	return fmt.Sprintf("%s.%d", w.path, idx)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
