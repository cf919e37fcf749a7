// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !windows

package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/log"
)

// FileWriter writes each snapshot to a JSON file. Readers never see a
// partially written file.
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
func (w *FileWriter) Publish(ctx context.Context, snap enforcer.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(w.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending status file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			log.FromContext(ctx).Debug().Err(err).Str(log.FieldPath, w.path).Msg("cleanup pending status file")
		}
	}()

	if _, err := pending.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}
