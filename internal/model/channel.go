// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the channel and schedule records the enforcer reads.
// Records are created by operators and never mutated by the enforcer.
package model

import "time"

// InputType is the kind of source a channel ingests.
type InputType string

const (
	InputFile         InputType = "file"
	InputUDPMulticast InputType = "udp_multicast"
	InputRTSP         InputType = "rtsp"
	InputRTMP         InputType = "rtmp"
	InputSRT          InputType = "srt"
	InputHTTP         InputType = "http"
)

// OutputType is where a live_forward job sends its stream.
type OutputType string

const (
	OutputHLS   OutputType = "hls"
	OutputRTMP  OutputType = "rtmp"
	OutputUDPTS OutputType = "udp_ts"
	OutputFile  OutputType = "file"
)

// VideoMode selects stream copy or re-encode for video.
type VideoMode string

const (
	VideoCopy      VideoMode = "copy"
	VideoTranscode VideoMode = "transcode"
)

// AudioMode selects stream copy, drop or re-encode for audio.
type AudioMode string

const (
	AudioCopy      AudioMode = "copy"
	AudioDisable   AudioMode = "disable"
	AudioTranscode AudioMode = "transcode"
)

// HardwarePreference names the decoder acceleration used when transcoding.
type HardwarePreference string

const (
	HardwareCPU   HardwarePreference = "cpu"
	HardwareNVENC HardwarePreference = "nvenc"
	HardwareVAAPI HardwarePreference = "vaapi"
	HardwareQSV   HardwarePreference = "qsv"
)

// Channel is a configured input to output media pipeline.
// Codec, bitrate and resolution fields only apply to transcode modes.
type Channel struct {
	ID                      int64              `json:"id" yaml:"id"`
	Name                    string             `json:"name" yaml:"name"`
	Enabled                 bool               `json:"enabled" yaml:"enabled"`
	InputType               InputType          `json:"input_type" yaml:"input_type"`
	InputURL                string             `json:"input_url" yaml:"input_url"`
	MulticastInterface      string             `json:"multicast_interface,omitempty" yaml:"multicast_interface,omitempty"`
	OutputType              OutputType         `json:"output_type" yaml:"output_type"`
	OutputTarget            string             `json:"output_target" yaml:"output_target"`
	RecordEnabled           bool               `json:"record_enabled" yaml:"record_enabled"`
	RecordingPathTemplate   string             `json:"recording_path_template" yaml:"recording_path_template"`
	RecordingSegmentMinutes int                `json:"recording_segment_minutes" yaml:"recording_segment_minutes"`
	VideoMode               VideoMode          `json:"video_mode" yaml:"video_mode"`
	AudioMode               AudioMode          `json:"audio_mode" yaml:"audio_mode"`
	VideoCodec              string             `json:"video_codec,omitempty" yaml:"video_codec,omitempty"`
	AudioCodec              string             `json:"audio_codec,omitempty" yaml:"audio_codec,omitempty"`
	TargetWidth             int                `json:"target_width,omitempty" yaml:"target_width,omitempty"`
	TargetHeight            int                `json:"target_height,omitempty" yaml:"target_height,omitempty"`
	VideoBitrate            string             `json:"video_bitrate,omitempty" yaml:"video_bitrate,omitempty"`
	HardwarePreference      HardwarePreference `json:"hardware_preference,omitempty" yaml:"hardware_preference,omitempty"`
	CreatedAt               time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt               time.Time          `json:"updated_at" yaml:"-"`
}

// TimeShiftProfile is the delayed rebroadcast configuration of a channel.
// It is stored and listed but no job consumes it.
type TimeShiftProfile struct {
	ChannelID    int64  `json:"channel_id" yaml:"channel_id"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	DelayMinutes int    `json:"delay_minutes" yaml:"delay_minutes"`
	OutputUDPURL string `json:"output_udp_url" yaml:"output_udp_url"`
}
