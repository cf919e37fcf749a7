// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/iptranscoder/internal/validate"
)

func validChannel() Channel {
	return Channel{
		Name:                    "News",
		Enabled:                 true,
		InputType:               InputUDPMulticast,
		InputURL:                "udp://239.1.1.1:5000",
		OutputType:              OutputHLS,
		OutputTarget:            "hls/news",
		RecordingPathTemplate:   "recordings/{channel}/{date}",
		RecordingSegmentMinutes: 60,
		VideoMode:               VideoCopy,
		AudioMode:               AudioCopy,
	}
}

func TestValidateChannel(t *testing.T) {
	require.NoError(t, ValidateChannel(validChannel()))

	tests := []struct {
		name  string
		mut   func(*Channel)
		field string
	}{
		{"empty name", func(c *Channel) { c.Name = " " }, "name"},
		{"unknown input", func(c *Channel) { c.InputType = "dvb" }, "input_type"},
		{"bad multicast scheme", func(c *Channel) { c.InputURL = "http://example.com/x" }, "input_url"},
		{"zero segment", func(c *Channel) { c.RecordingSegmentMinutes = 0 }, "recording_segment_minutes"},
		{"codec with copy", func(c *Channel) { c.VideoCodec = "libx265" }, "video_codec"},
		{"bitrate with copy", func(c *Channel) { c.VideoBitrate = "4M" }, "video_bitrate"},
		{"audio codec with disable", func(c *Channel) { c.AudioMode = AudioDisable; c.AudioCodec = "aac" }, "audio_codec"},
		{"unknown hardware", func(c *Channel) { c.HardwarePreference = "tpu" }, "hardware_preference"},
		{"half resolution", func(c *Channel) {
			c.VideoMode = VideoTranscode
			c.TargetWidth = 1280
		}, "target_width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := validChannel()
			tt.mut(&ch)
			err := ValidateChannel(ch)
			require.Error(t, err)
			assert.True(t, validate.HasField(err, tt.field), err.Error())
		})
	}
}

func TestValidateChannelTranscode(t *testing.T) {
	ch := validChannel()
	ch.VideoMode = VideoTranscode
	ch.VideoCodec = "libx264"
	ch.VideoBitrate = "3M"
	ch.TargetWidth, ch.TargetHeight = 1280, 720
	ch.AudioMode = AudioTranscode
	ch.AudioCodec = "aac"
	ch.HardwarePreference = HardwareVAAPI
	assert.NoError(t, ValidateChannel(ch))
}

func TestValidateSchedule(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	s := Schedule{ChannelID: 1, Name: "evening", Purpose: PurposeRecord, StartAt: t0, EndAt: t0.Add(time.Hour)}
	require.NoError(t, ValidateSchedule(s))

	s.EndAt = t0
	assert.True(t, validate.HasField(ValidateSchedule(s), "start_at"))

	s.EndAt = t0.Add(time.Hour)
	s.Purpose = "timeshift"
	assert.True(t, validate.HasField(ValidateSchedule(s), "purpose"))
}

func TestValidateRecurringSchedule(t *testing.T) {
	r := RecurringSchedule{
		ChannelID: 1,
		Name:      "weekend",
		Purpose:   PurposeLiveForward,
		Days:      Weekdays{Saturday: true},
		StartTime: Clock(0, 0, 0),
		EndTime:   Clock(23, 59, 59),
	}
	require.NoError(t, ValidateRecurringSchedule(r))

	overnight := r
	overnight.StartTime, overnight.EndTime = Clock(22, 0, 0), Clock(2, 0, 0)
	assert.True(t, validate.HasField(ValidateRecurringSchedule(overnight), "end_time"))

	noDays := r
	noDays.Days = Weekdays{}
	assert.True(t, validate.HasField(ValidateRecurringSchedule(noDays), "days"))

	from, to := Date{2026, 5, 2}, Date{2026, 5, 1}
	inverted := r
	inverted.DateFrom, inverted.DateTo = &from, &to
	assert.True(t, validate.HasField(ValidateRecurringSchedule(inverted), "date_from"))
}

func TestValidateTimeShiftProfile(t *testing.T) {
	p := TimeShiftProfile{ChannelID: 1, Enabled: true, DelayMinutes: 30, OutputUDPURL: "udp://239.2.2.2:6000"}
	require.NoError(t, ValidateTimeShiftProfile(p))

	p.OutputUDPURL = ""
	assert.True(t, validate.HasField(ValidateTimeShiftProfile(p), "output_udp_url"))

	p.Enabled = false
	assert.NoError(t, ValidateTimeShiftProfile(p))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("06:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(6, 30, 0), tod)
	assert.Equal(t, "06:30:00", tod.String())

	tod, err = ParseTimeOfDay("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(86399), tod)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	at := time.Date(2026, 1, 3, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, Clock(14, 5, 9), TimeOfDayOf(at))
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, Date{2026, time.February, 28}, d)
	assert.True(t, d.Before(Date{2026, time.March, 1}))
	assert.True(t, d.After(Date{2025, time.December, 31}))
	assert.False(t, d.Before(d))

	_, err = ParseDate("28.02.2026")
	assert.Error(t, err)
}

func TestRecurringScheduleYAML(t *testing.T) {
	src := `
id: 4
channel_id: 2
name: morning show
purpose: record
enabled: true
days: {monday: true, friday: true}
start_time: "06:00"
end_time: "09:30"
date_from: 2026-01-01
`
	var r RecurringSchedule
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))
	assert.Equal(t, Clock(6, 0, 0), r.StartTime)
	assert.Equal(t, Clock(9, 30, 0), r.EndTime)
	require.NotNil(t, r.DateFrom)
	assert.Equal(t, Date{2026, time.January, 1}, *r.DateFrom)
	assert.Nil(t, r.DateTo)
	assert.True(t, r.Days.On(time.Monday))
	assert.False(t, r.Days.On(time.Tuesday))
}

func TestWeekdaysMask(t *testing.T) {
	w := Weekdays{Monday: true, Saturday: true, Sunday: true}
	assert.Equal(t, w, WeekdaysFromMask(w.Mask()))
	assert.Equal(t, uint8(1<<0|1<<1|1<<6), w.Mask())
}

func TestJobKey(t *testing.T) {
	k := RecurringKey(12)
	assert.Equal(t, "recurring:12", k.String())
	parsed, err := ParseJobKey("recurring:12")
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
	assert.NotEqual(t, OneOffKey(12), k)
	assert.True(t, OneOffKey(99).Less(RecurringKey(1)))

	_, err = ParseJobKey("weekly:1")
	assert.Error(t, err)

	b, err := json.Marshal(map[JobKey]int{OneOffKey(3): 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"oneoff:3":1}`, string(b))
}
