// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"

	"github.com/ManuGH/iptranscoder/internal/validate"
)

var (
	inputTypes    = []string{string(InputFile), string(InputUDPMulticast), string(InputRTSP), string(InputRTMP), string(InputSRT), string(InputHTTP)}
	outputTypes   = []string{string(OutputHLS), string(OutputRTMP), string(OutputUDPTS), string(OutputFile)}
	videoModes    = []string{string(VideoCopy), string(VideoTranscode)}
	audioModes    = []string{string(AudioCopy), string(AudioDisable), string(AudioTranscode)}
	hardwarePrefs = []string{"", string(HardwareCPU), string(HardwareNVENC), string(HardwareVAAPI), string(HardwareQSV)}
	purposes      = []string{string(PurposeLiveForward), string(PurposeRecord), string(PurposePlayback)}
)

// ValidateChannel checks a channel before it is saved.
func ValidateChannel(ch Channel) error {
	v := validate.New()
	v.NotEmpty("name", ch.Name)
	v.OneOf("input_type", string(ch.InputType), inputTypes)
	v.NotEmpty("input_url", ch.InputURL)
	v.OneOf("output_type", string(ch.OutputType), outputTypes)
	v.NotEmpty("output_target", ch.OutputTarget)
	v.NotEmpty("recording_path_template", ch.RecordingPathTemplate)
	v.Positive("recording_segment_minutes", ch.RecordingSegmentMinutes)
	v.OneOf("video_mode", string(ch.VideoMode), videoModes)
	v.OneOf("audio_mode", string(ch.AudioMode), audioModes)
	v.OneOf("hardware_preference", string(ch.HardwarePreference), hardwarePrefs)
	v.NonNegative("target_width", ch.TargetWidth)
	v.NonNegative("target_height", ch.TargetHeight)

	switch ch.InputType {
	case InputUDPMulticast:
		v.URL("input_url", ch.InputURL, []string{"udp", "rtp"})
	case InputRTSP:
		v.URL("input_url", ch.InputURL, []string{"rtsp", "rtsps"})
	case InputRTMP:
		v.URL("input_url", ch.InputURL, []string{"rtmp", "rtmps"})
	case InputSRT:
		v.URL("input_url", ch.InputURL, []string{"srt"})
	case InputHTTP:
		v.URL("input_url", ch.InputURL, []string{"http", "https"})
	}

	if (ch.TargetWidth == 0) != (ch.TargetHeight == 0) {
		v.AddError("target_width", "target_width and target_height must be set together", fmt.Sprintf("%dx%d", ch.TargetWidth, ch.TargetHeight))
	}

	// Copy modes carry no encoder settings.
	if ch.VideoMode == VideoCopy {
		if ch.VideoCodec != "" {
			v.AddError("video_codec", "must be empty when video_mode is copy", ch.VideoCodec)
		}
		if ch.VideoBitrate != "" {
			v.AddError("video_bitrate", "must be empty when video_mode is copy", ch.VideoBitrate)
		}
		if ch.TargetWidth != 0 || ch.TargetHeight != 0 {
			v.AddError("target_width", "resolution must be empty when video_mode is copy", fmt.Sprintf("%dx%d", ch.TargetWidth, ch.TargetHeight))
		}
	}
	if ch.AudioMode != AudioTranscode && ch.AudioCodec != "" {
		v.AddError("audio_codec", fmt.Sprintf("must be empty when audio_mode is %s", ch.AudioMode), ch.AudioCodec)
	}
	return v.Err()
}

// ValidateSchedule checks a one-off schedule before it is saved.
func ValidateSchedule(s Schedule) error {
	v := validate.New()
	v.NotEmpty("name", s.Name)
	v.Positive("channel_id", int(s.ChannelID))
	v.OneOf("purpose", string(s.Purpose), purposes)
	v.Before("start_at", s.StartAt, s.EndAt)
	return v.Err()
}

// ValidateRecurringSchedule checks a recurring schedule before it is saved.
// Windows that cross midnight are rejected; split them into two schedules.
func ValidateRecurringSchedule(r RecurringSchedule) error {
	v := validate.New()
	v.NotEmpty("name", r.Name)
	v.Positive("channel_id", int(r.ChannelID))
	v.OneOf("purpose", string(r.Purpose), purposes)
	if !r.Days.Any() {
		v.AddError("days", "at least one weekday must be set", r.Days)
	}
	v.Range("start_time", int(r.StartTime), 0, 86399)
	v.Range("end_time", int(r.EndTime), 0, 86399)
	if r.EndTime <= r.StartTime {
		v.AddError("end_time",
			fmt.Sprintf("end_time %s must be after start_time %s (overnight windows are not supported)", r.EndTime, r.StartTime),
			r.EndTime)
	}
	if r.DateFrom != nil && r.DateTo != nil && r.DateFrom.After(*r.DateTo) {
		v.AddError("date_from", fmt.Sprintf("date_from %s is after date_to %s", r.DateFrom, r.DateTo), *r.DateFrom)
	}
	return v.Err()
}

// ValidateTimeShiftProfile checks a time-shift profile before it is saved.
func ValidateTimeShiftProfile(p TimeShiftProfile) error {
	v := validate.New()
	v.Positive("channel_id", int(p.ChannelID))
	v.NonNegative("delay_minutes", p.DelayMinutes)
	if p.Enabled {
		v.URL("output_udp_url", p.OutputUDPURL, []string{"udp"})
	}
	return v.Err()
}
