package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	errs "snooper/pkg/errors"
	"snooper/pkg/report"
)

// Writer writes reports to stdout or to a file
type Writer struct {
	path   string
	stdout io.Writer
	mu     sync.Mutex
}

// NewWriter creates a writer for path; an empty path means stdout
func NewWriter(path string) *Writer {
	return NewWriterTo(path, os.Stdout)
}

// NewWriterTo creates a writer whose stdout is out
func NewWriterTo(path string, out io.Writer) *Writer {
	return &Writer{path: path, stdout: out}
}

// ToStdout reports whether reports go to stdout
func (w *Writer) ToStdout() bool {
	return w.path == ""
}

// Write encodes r and writes it out. For files it returns the absolute path
// written; for stdout it returns "". The file is replaced atomically so a
// failed write never leaves a truncated report behind.
func (w *Writer) Write(r *report.Report) (string, error) {
	var buf bytes.Buffer
	if err := report.Encode(&buf, r); err != nil {
		return "", errs.Wrap(errs.ErrorTypeOutput, err, "failed to encode report")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ToStdout() {
		if _, err := w.stdout.Write(buf.Bytes()); err != nil {
			return "", errs.Wrap(errs.ErrorTypeOutput, err, "failed to write report to stdout")
		}
		return "", nil
	}

	path, err := filepath.Abs(w.path)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeOutput, err, fmt.Sprintf("invalid output path %q", w.path))
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", errs.Wrap(errs.ErrorTypeOutput, err, fmt.Sprintf("failed to write report to %s", path))
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write report data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
