// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/persistence/sqlite"
)

const schemaVersion = 1

const channelColumns = `c.id, c.name, c.enabled, c.input_type, c.input_url, c.multicast_interface,
	c.output_type, c.output_target, c.record_enabled, c.recording_path_template, c.recording_segment_minutes,
	c.video_mode, c.audio_mode, c.video_codec, c.audio_codec, c.target_width, c.target_height,
	c.video_bitrate, c.hardware_preference, c.created_at_ms, c.updated_at_ms`

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB   *sql.DB
	path string
	now  func() time.Time
}

// OpenSqliteStore opens (and migrates) the database at path.
func OpenSqliteStore(ctx context.Context, path string) (*SqliteStore, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SqliteStore{DB: db, path: path, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schedule store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		input_type TEXT NOT NULL,
		input_url TEXT NOT NULL,
		multicast_interface TEXT NOT NULL DEFAULT '',
		output_type TEXT NOT NULL,
		output_target TEXT NOT NULL,
		record_enabled INTEGER NOT NULL DEFAULT 0,
		recording_path_template TEXT NOT NULL,
		recording_segment_minutes INTEGER NOT NULL,
		video_mode TEXT NOT NULL,
		audio_mode TEXT NOT NULL,
		video_codec TEXT NOT NULL DEFAULT '',
		audio_codec TEXT NOT NULL DEFAULT '',
		target_width INTEGER NOT NULL DEFAULT 0,
		target_height INTEGER NOT NULL DEFAULT 0,
		video_bitrate TEXT NOT NULL DEFAULT '',
		hardware_preference TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		purpose TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		start_at_ms INTEGER NOT NULL,
		end_at_ms INTEGER NOT NULL,
		CHECK (start_at_ms < end_at_ms)
	);
	CREATE INDEX IF NOT EXISTS idx_schedules_window ON schedules(enabled, start_at_ms, end_at_ms);

	CREATE TABLE IF NOT EXISTS recurring_schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		purpose TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		days_mask INTEGER NOT NULL,
		start_time_s INTEGER NOT NULL,
		end_time_s INTEGER NOT NULL,
		date_from TEXT,
		date_to TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_enabled ON recurring_schedules(enabled);

	CREATE TABLE IF NOT EXISTS timeshift_profiles (
		channel_id INTEGER PRIMARY KEY REFERENCES channels(id) ON DELETE CASCADE,
		enabled INTEGER NOT NULL DEFAULT 0,
		delay_minutes INTEGER NOT NULL DEFAULT 0,
		output_udp_url TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner, extra ...any) (model.Channel, error) {
	var ch model.Channel
	var createdMs, updatedMs int64
	dest := []any{
		&ch.ID, &ch.Name, &ch.Enabled, &ch.InputType, &ch.InputURL, &ch.MulticastInterface,
		&ch.OutputType, &ch.OutputTarget, &ch.RecordEnabled, &ch.RecordingPathTemplate, &ch.RecordingSegmentMinutes,
		&ch.VideoMode, &ch.AudioMode, &ch.VideoCodec, &ch.AudioCodec, &ch.TargetWidth, &ch.TargetHeight,
		&ch.VideoBitrate, &ch.HardwarePreference, &createdMs, &updatedMs,
	}
	if err := row.Scan(append(extra, dest...)...); err != nil {
		return model.Channel{}, err
	}
	ch.CreatedAt = time.UnixMilli(createdMs)
	ch.UpdatedAt = time.UnixMilli(updatedMs)
	return ch, nil
}

func (s *SqliteStore) querySchedules(ctx context.Context, where string, args ...any) ([]model.Schedule, error) {
	query := `SELECT o.id, o.channel_id, o.name, o.purpose, o.enabled, o.start_at_ms, o.end_at_ms, ` + channelColumns + `
		FROM schedules o JOIN channels c ON c.id = o.channel_id ` + where + ` ORDER BY o.id`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Schedule
	for rows.Next() {
		var sch model.Schedule
		var startMs, endMs int64
		ch, err := scanChannel(rows, &sch.ID, &sch.ChannelID, &sch.Name, &sch.Purpose, &sch.Enabled, &startMs, &endMs)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sch.StartAt = time.UnixMilli(startMs)
		sch.EndAt = time.UnixMilli(endMs)
		sch.Channel = &ch
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *SqliteStore) queryRecurring(ctx context.Context, where string, args ...any) ([]model.RecurringSchedule, error) {
	query := `SELECT r.id, r.channel_id, r.name, r.purpose, r.enabled, r.days_mask, r.start_time_s, r.end_time_s,
		r.date_from, r.date_to, ` + channelColumns + `
		FROM recurring_schedules r JOIN channels c ON c.id = r.channel_id ` + where + ` ORDER BY r.id`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RecurringSchedule
	for rows.Next() {
		var r model.RecurringSchedule
		var mask int
		var start, end int
		var from, to sql.NullString
		ch, err := scanChannel(rows, &r.ID, &r.ChannelID, &r.Name, &r.Purpose, &r.Enabled, &mask, &start, &end, &from, &to)
		if err != nil {
			return nil, fmt.Errorf("scan recurring schedule: %w", err)
		}
		r.Days = model.WeekdaysFromMask(uint8(mask))
		r.StartTime = model.TimeOfDay(start)
		r.EndTime = model.TimeOfDay(end)
		if r.DateFrom, err = nullDate(from); err != nil {
			return nil, fmt.Errorf("recurring schedule %d: %w", r.ID, err)
		}
		if r.DateTo, err = nullDate(to); err != nil {
			return nil, fmt.Errorf("recurring schedule %d: %w", r.ID, err)
		}
		r.Channel = &ch
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullDate(ns sql.NullString) (*model.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := model.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func dateValue(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func (s *SqliteStore) ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	ms := now.UnixMilli()
	return s.querySchedules(ctx, "WHERE o.enabled = 1 AND o.start_at_ms <= ? AND ? < o.end_at_ms", ms, ms)
}

func (s *SqliteStore) EnabledRecurringSchedules(ctx context.Context) ([]model.RecurringSchedule, error) {
	return s.queryRecurring(ctx, "WHERE r.enabled = 1")
}

func (s *SqliteStore) Schedules(ctx context.Context) ([]model.Schedule, error) {
	return s.querySchedules(ctx, "")
}

func (s *SqliteStore) RecurringSchedules(ctx context.Context) ([]model.RecurringSchedule, error) {
	return s.queryRecurring(ctx, "")
}

func (s *SqliteStore) Channel(ctx context.Context, id int64) (model.Channel, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels c WHERE c.id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Channel{}, fmt.Errorf("channel %d: %w", id, err)
	}
	return ch, nil
}

func (s *SqliteStore) Channels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels c ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *SqliteStore) TimeShiftProfiles(ctx context.Context) ([]model.TimeShiftProfile, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT channel_id, enabled, delay_minutes, output_udp_url FROM timeshift_profiles ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("query time-shift profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TimeShiftProfile
	for rows.Next() {
		var p model.TimeShiftProfile
		if err := rows.Scan(&p.ChannelID, &p.Enabled, &p.DelayMinutes, &p.OutputUDPURL); err != nil {
			return nil, fmt.Errorf("scan time-shift profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteStore) SaveChannel(ctx context.Context, ch *model.Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}
	now := s.now()
	if ch.ID != 0 {
		// Keep the original creation time on update.
		var createdMs int64
		err := s.DB.QueryRowContext(ctx, `SELECT created_at_ms FROM channels WHERE id = ?`, ch.ID).Scan(&createdMs)
		if err == nil {
			ch.CreatedAt = time.UnixMilli(createdMs)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("save channel %d: %w", ch.ID, err)
		}
	}
	stamp(ch, now)

	var id any
	if ch.ID != 0 {
		id = ch.ID
	}
	row := s.DB.QueryRowContext(ctx, `
	INSERT INTO channels (id, name, enabled, input_type, input_url, multicast_interface, output_type, output_target,
		record_enabled, recording_path_template, recording_segment_minutes, video_mode, audio_mode, video_codec,
		audio_codec, target_width, target_height, video_bitrate, hardware_preference, created_at_ms, updated_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		enabled = excluded.enabled,
		input_type = excluded.input_type,
		input_url = excluded.input_url,
		multicast_interface = excluded.multicast_interface,
		output_type = excluded.output_type,
		output_target = excluded.output_target,
		record_enabled = excluded.record_enabled,
		recording_path_template = excluded.recording_path_template,
		recording_segment_minutes = excluded.recording_segment_minutes,
		video_mode = excluded.video_mode,
		audio_mode = excluded.audio_mode,
		video_codec = excluded.video_codec,
		audio_codec = excluded.audio_codec,
		target_width = excluded.target_width,
		target_height = excluded.target_height,
		video_bitrate = excluded.video_bitrate,
		hardware_preference = excluded.hardware_preference,
		updated_at_ms = excluded.updated_at_ms
	RETURNING id`,
		id, ch.Name, ch.Enabled, ch.InputType, ch.InputURL, ch.MulticastInterface, ch.OutputType, ch.OutputTarget,
		ch.RecordEnabled, ch.RecordingPathTemplate, ch.RecordingSegmentMinutes, ch.VideoMode, ch.AudioMode, ch.VideoCodec,
		ch.AudioCodec, ch.TargetWidth, ch.TargetHeight, ch.VideoBitrate, ch.HardwarePreference,
		ch.CreatedAt.UnixMilli(), ch.UpdatedAt.UnixMilli(),
	)
	if err := row.Scan(&ch.ID); err != nil {
		return fmt.Errorf("save channel %q: %w", ch.Name, err)
	}
	return nil
}

func (s *SqliteStore) requireChannel(ctx context.Context, id int64) error {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM channels WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return err
}

func optionalID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func (s *SqliteStore) SaveSchedule(ctx context.Context, sch *model.Schedule) error {
	if err := model.ValidateSchedule(*sch); err != nil {
		return err
	}
	if err := s.requireChannel(ctx, sch.ChannelID); err != nil {
		return fmt.Errorf("schedule %q: %w", sch.Name, err)
	}
	row := s.DB.QueryRowContext(ctx, `
	INSERT INTO schedules (id, channel_id, name, purpose, enabled, start_at_ms, end_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		channel_id = excluded.channel_id,
		name = excluded.name,
		purpose = excluded.purpose,
		enabled = excluded.enabled,
		start_at_ms = excluded.start_at_ms,
		end_at_ms = excluded.end_at_ms
	RETURNING id`,
		optionalID(sch.ID), sch.ChannelID, sch.Name, sch.Purpose, sch.Enabled, sch.StartAt.UnixMilli(), sch.EndAt.UnixMilli(),
	)
	if err := row.Scan(&sch.ID); err != nil {
		return fmt.Errorf("save schedule %q: %w", sch.Name, err)
	}
	return nil
}

func (s *SqliteStore) SaveRecurringSchedule(ctx context.Context, r *model.RecurringSchedule) error {
	if err := model.ValidateRecurringSchedule(*r); err != nil {
		return err
	}
	if err := s.requireChannel(ctx, r.ChannelID); err != nil {
		return fmt.Errorf("recurring schedule %q: %w", r.Name, err)
	}
	row := s.DB.QueryRowContext(ctx, `
	INSERT INTO recurring_schedules (id, channel_id, name, purpose, enabled, days_mask, start_time_s, end_time_s, date_from, date_to)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		channel_id = excluded.channel_id,
		name = excluded.name,
		purpose = excluded.purpose,
		enabled = excluded.enabled,
		days_mask = excluded.days_mask,
		start_time_s = excluded.start_time_s,
		end_time_s = excluded.end_time_s,
		date_from = excluded.date_from,
		date_to = excluded.date_to
	RETURNING id`,
		optionalID(r.ID), r.ChannelID, r.Name, r.Purpose, r.Enabled, int(r.Days.Mask()),
		int(r.StartTime), int(r.EndTime), dateValue(r.DateFrom), dateValue(r.DateTo),
	)
	if err := row.Scan(&r.ID); err != nil {
		return fmt.Errorf("save recurring schedule %q: %w", r.Name, err)
	}
	return nil
}

func (s *SqliteStore) SaveTimeShiftProfile(ctx context.Context, p *model.TimeShiftProfile) error {
	if err := model.ValidateTimeShiftProfile(*p); err != nil {
		return err
	}
	if err := s.requireChannel(ctx, p.ChannelID); err != nil {
		return fmt.Errorf("time-shift profile: %w", err)
	}
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO timeshift_profiles (channel_id, enabled, delay_minutes, output_udp_url)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(channel_id) DO UPDATE SET
		enabled = excluded.enabled,
		delay_minutes = excluded.delay_minutes,
		output_udp_url = excluded.output_udp_url`,
		p.ChannelID, p.Enabled, p.DelayMinutes, p.OutputUDPURL,
	)
	if err != nil {
		return fmt.Errorf("save time-shift profile for channel %d: %w", p.ChannelID, err)
	}
	return nil
}

// Verify runs PRAGMA quick_check ("quick") or integrity_check ("full").
func (s *SqliteStore) Verify(ctx context.Context, mode string) ([]string, error) {
	return sqlite.Verify(ctx, s.DB, mode)
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
