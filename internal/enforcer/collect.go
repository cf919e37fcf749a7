// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/schedule"
	"github.com/ManuGH/iptranscoder/internal/store"
)

// DesiredJob is the schedule-backed reason a job should be running.
type DesiredJob struct {
	Channel      model.Channel
	Purpose      model.Purpose
	ScheduleName string
}

// Collect returns every job the schedules want running at now.
// now is used for both the one-off query and the recurring evaluation.
func Collect(ctx context.Context, r store.Reader, now time.Time) (map[model.JobKey]DesiredJob, error) {
	oneOffs, err := r.ActiveSchedules(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("active schedules: %w", err)
	}
	recurring, err := r.EnabledRecurringSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("recurring schedules: %w", err)
	}

	desired := make(map[model.JobKey]DesiredJob, len(oneOffs)+len(recurring))
	for _, s := range oneOffs {
		// The store already filtered; re-check so a lenient backend cannot
		// widen the window.
		if s.Channel == nil || !schedule.OneOffActive(s, now) {
			continue
		}
		desired[model.OneOffKey(s.ID)] = DesiredJob{
			Channel:      *s.Channel,
			Purpose:      s.Purpose,
			ScheduleName: s.Name,
		}
	}
	for _, rs := range recurring {
		if rs.Channel == nil || !schedule.RecurringActive(rs, now) {
			continue
		}
		desired[model.RecurringKey(rs.ID)] = DesiredJob{
			Channel:      *rs.Channel,
			Purpose:      rs.Purpose,
			ScheduleName: rs.Name,
		}
	}
	return desired, nil
}
