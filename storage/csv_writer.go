package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"trademe-analyzer/models"
)

// FileWriter saves rendered reports to a file on disk.
// It is safe for concurrent use.
type FileWriter struct {
	mu         sync.Mutex
	path       string
	serializer *Serializer
	file       *os.File
}

// NewFileWriter creates (or truncates) the report file at the given path.
// Intermediate directories are created automatically.
func NewFileWriter(path string, serializer *Serializer) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create file %q: %w", path, err)
	}

	return &FileWriter{path: path, serializer: serializer, file: f}, nil
}

// Path is the file the report is written to.
func (w *FileWriter) Path() string {
	return w.path
}

// Write replaces the file contents with the rendered report.
func (w *FileWriter) Write(result *models.AnalysisResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("report: truncate: %w", err)
	}
	if _, err := w.file.Seek(0, 0); err != nil {
		return fmt.Errorf("report: seek: %w", err)
	}
	if err := w.serializer.Write(w.file, result); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
