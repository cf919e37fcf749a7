// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Placeholders understood by recording path templates.
const (
	PlaceholderChannel = "channel"
	PlaceholderDate    = "date" // YYYYMMDD
	PlaceholderTime    = "time" // HHMMSS
)

// ExpandTemplate substitutes {channel}, {date} and {time} in tmpl.
// "{{" and "}}" produce literal braces. Any other placeholder, or an
// unbalanced brace, yields a *TemplateError.
func ExpandTemplate(tmpl, channel string, now time.Time) (string, error) {
	values := map[string]string{
		PlaceholderChannel: expandName(channel),
		PlaceholderDate:    now.Format("20060102"),
		PlaceholderTime:    now.Format("150405"),
	}

	var b strings.Builder
	b.Grow(len(tmpl) + 32)
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", &TemplateError{Template: tmpl, Offset: i, Reason: "unclosed '{'"}
			}
			name := tmpl[i+1 : i+1+end]
			val, ok := values[name]
			if !ok {
				return "", &TemplateError{Template: tmpl, Placeholder: name, Offset: i, Reason: "unknown placeholder"}
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &TemplateError{Template: tmpl, Offset: i, Reason: "single '}' not allowed"}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func expandName(name string) string {
	return norm.NFC.String(name)
}
