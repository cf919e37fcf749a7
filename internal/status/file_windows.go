// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
)

// FileWriter writes each snapshot to a JSON file.
type FileWriter struct {
	path string
}

// NewFileWriter creates the parent directory of path if needed.
func NewFileWriter(path string) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("status dir: %w", err)
	}
	return &FileWriter{path: path}, nil
}

// Name implements enforcer.Publisher.
func (w *FileWriter) Name() string { return "file" }

// Path returns the status file location.
func (w *FileWriter) Path() string { return w.path }

// Publish implements enforcer.Publisher.
func (w *FileWriter) Publish(_ context.Context, snap enforcer.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}
