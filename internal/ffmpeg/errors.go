// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"errors"
	"fmt"
)

var (
	// ErrPurposeNotImplemented is returned for purposes that are modelled but
	// have no command (playback).
	ErrPurposeNotImplemented = errors.New("ffmpeg: purpose not implemented")
	// ErrUnknownPurpose is returned for purposes outside the known set.
	ErrUnknownPurpose = errors.New("ffmpeg: unknown purpose")
)

// TemplateError reports a recording path template that cannot be expanded.
type TemplateError struct {
	Template    string
	Placeholder string // empty for syntax errors
	Offset      int
	Reason      string
}

func (e *TemplateError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("recording path template %q: %s {%s} at offset %d", e.Template, e.Reason, e.Placeholder, e.Offset)
	}
	return fmt.Sprintf("recording path template %q: %s at offset %d", e.Template, e.Reason, e.Offset)
}
