// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	shellquote "github.com/kballard/go-shellquote"
)

// Quote renders argv for humans, quoting every argument on its own.
// The result is for logs and previews only; argv is never run through a shell.
func Quote(argv []string) string {
	return shellquote.Join(argv...)
}
