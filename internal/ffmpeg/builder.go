// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ffmpeg turns a channel and a job purpose into an ffmpeg argv.
package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
)

const (
	// DefaultBinary is used when no ffmpeg path is configured.
	DefaultBinary = "ffmpeg"

	defaultVideoCodec     = "libx264"
	defaultAudioCodec     = "aac"
	defaultSegmentMinutes = 60

	hlsSegmentSeconds = "4"
	hlsWindowSize     = "10"
	hlsPlaylistName   = "index.m3u8"

	multicastFifoParams = "fifo_size=1000000&overrun_nonfatal=1"
	vaapiDevice         = "/dev/dri/renderD128"
)

// Builder builds argv lists. It is safe for concurrent use.
type Builder struct {
	bin       string
	mediaRoot string
	now       func() time.Time
	mkdirAll  func(path string, perm os.FileMode) error
}

// NewBuilder returns a Builder resolving relative paths under mediaRoot.
// now supplies the wall clock used by recording path templates; nil means time.Now.
func NewBuilder(bin, mediaRoot string, now func() time.Time) *Builder {
	if bin == "" {
		bin = DefaultBinary
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{
		bin:       bin,
		mediaRoot: mediaRoot,
		now:       now,
		mkdirAll:  os.MkdirAll,
	}
}

// MediaRoot returns the directory relative paths are resolved against.
func (b *Builder) MediaRoot() string { return b.mediaRoot }

// Build returns the argv for running purpose on ch, creating the output or
// recording directory when the output is file based.
func (b *Builder) Build(ch model.Channel, purpose model.Purpose) ([]string, error) {
	return b.build(ch, purpose, true)
}

// Preview returns the same argv as Build without touching the filesystem.
func (b *Builder) Preview(ch model.Channel, purpose model.Purpose) ([]string, error) {
	return b.build(ch, purpose, false)
}

func (b *Builder) build(ch model.Channel, purpose model.Purpose, createDirs bool) ([]string, error) {
	switch purpose {
	case model.PurposeLiveForward, model.PurposeRecord:
	case model.PurposePlayback:
		return nil, fmt.Errorf("%w: %s", ErrPurposeNotImplemented, purpose)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}

	args := []string{b.bin, "-y", "-hide_banner", "-loglevel", "warning"}

	// Hardware decode setup must precede the input.
	if ch.VideoMode == model.VideoTranscode {
		args = append(args, hwaccelArgs(ch.HardwarePreference)...)
	}
	args = append(args, "-i", b.resolveInput(ch))
	args = append(args, videoArgs(ch)...)
	args = append(args, audioArgs(ch)...)

	var out []string
	var err error
	switch purpose {
	case model.PurposeLiveForward:
		out, err = b.liveForwardArgs(ch, createDirs)
	case model.PurposeRecord:
		out, err = b.recordArgs(ch, createDirs)
	}
	if err != nil {
		return nil, err
	}
	return append(args, out...), nil
}

func (b *Builder) resolveInput(ch model.Channel) string {
	switch ch.InputType {
	case model.InputFile:
		return b.underRoot(ch.InputURL)
	case model.InputUDPMulticast:
		return withFifoParams(ch.InputURL)
	default:
		return ch.InputURL
	}
}

// withFifoParams appends receive buffer options to a multicast URL unless
// the URL already sets fifo_size.
func withFifoParams(u string) string {
	if strings.Contains(u, "fifo_size=") {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + multicastFifoParams
}

func hwaccelArgs(pref model.HardwarePreference) []string {
	switch pref {
	case model.HardwareNVENC:
		return []string{"-hwaccel", "cuda"}
	case model.HardwareVAAPI:
		return []string{"-hwaccel", "vaapi", "-vaapi_device", vaapiDevice}
	case model.HardwareQSV:
		return []string{"-hwaccel", "qsv"}
	default:
		return nil
	}
}

func videoArgs(ch model.Channel) []string {
	if ch.VideoMode == model.VideoCopy {
		return []string{"-c:v", "copy"}
	}
	codec := ch.VideoCodec
	if codec == "" {
		codec = defaultVideoCodec
	}
	args := []string{"-c:v", codec}
	if ch.TargetWidth > 0 && ch.TargetHeight > 0 {
		args = append(args, "-s", strconv.Itoa(ch.TargetWidth)+"x"+strconv.Itoa(ch.TargetHeight))
	}
	if ch.VideoBitrate != "" {
		args = append(args, "-b:v", ch.VideoBitrate)
	}
	return args
}

func audioArgs(ch model.Channel) []string {
	switch ch.AudioMode {
	case model.AudioCopy:
		return []string{"-c:a", "copy"}
	case model.AudioDisable:
		return []string{"-an"}
	default:
		codec := ch.AudioCodec
		if codec == "" {
			codec = defaultAudioCodec
		}
		return []string{"-c:a", codec}
	}
}

func (b *Builder) liveForwardArgs(ch model.Channel, createDirs bool) ([]string, error) {
	switch ch.OutputType {
	case model.OutputHLS:
		dir := b.underRoot(ch.OutputTarget)
		if err := b.ensureDir(dir, createDirs); err != nil {
			return nil, err
		}
		return []string{
			"-f", "hls",
			"-hls_time", hlsSegmentSeconds,
			"-hls_list_size", hlsWindowSize,
			"-hls_flags", "delete_segments",
			filepath.Join(dir, hlsPlaylistName),
		}, nil
	case model.OutputRTMP:
		return []string{"-f", "flv", ch.OutputTarget}, nil
	case model.OutputUDPTS:
		return []string{"-f", "mpegts", ch.OutputTarget}, nil
	default:
		path := b.underRoot(ch.OutputTarget)
		if err := b.ensureDir(filepath.Dir(path), createDirs); err != nil {
			return nil, err
		}
		return []string{"-f", "mpegts", path}, nil
	}
}

func (b *Builder) recordArgs(ch model.Channel, createDirs bool) ([]string, error) {
	expanded, err := ExpandTemplate(ch.RecordingPathTemplate, ch.Name, b.now())
	if err != nil {
		return nil, err
	}
	dir := b.underRoot(expanded)
	if err := b.ensureDir(dir, createDirs); err != nil {
		return nil, err
	}

	minutes := ch.RecordingSegmentMinutes
	if minutes <= 0 {
		minutes = defaultSegmentMinutes
	}
	return []string{
		"-f", "segment",
		"-segment_time", strconv.Itoa(minutes * 60),
		"-reset_timestamps", "1",
		segmentPattern(filepath.Join(dir, segmentPrefix(ch.Name))),
	}, nil
}

// segmentPrefix makes a channel name usable as a single path element.
func segmentPrefix(name string) string {
	name = expandName(name)
	return strings.ReplaceAll(name, string(filepath.Separator), "_")
}

// segmentPattern turns a raw path prefix into an ffmpeg segment muxer
// pattern. The muxer treats the whole path as a frame-number template, so
// every literal % must be doubled, not only those in the file name.
func segmentPattern(prefix string) string {
	return strings.ReplaceAll(prefix, "%", "%%") + "_%05d.ts"
}

func (b *Builder) underRoot(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.mediaRoot, p)
}

func (b *Builder) ensureDir(dir string, create bool) error {
	if !create {
		return nil
	}
	if err := b.mkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}
