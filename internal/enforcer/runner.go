// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

// ErrUnsupportedPurpose is returned by RunOnce for purposes that cannot be
// started by hand.
var ErrUnsupportedPurpose = errors.New("purpose cannot be run manually")

// Runner starts a single channel job outside of any schedule.
type Runner struct {
	store    store.Reader
	builder  CommandBuilder
	launcher Launcher
	logger   zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(r store.Reader, b CommandBuilder, l Launcher) *Runner {
	return &Runner{store: r, builder: b, launcher: l, logger: log.WithComponent("runner")}
}

// RunOnce runs purpose for the channel and blocks until the job exits.
// Cancelling ctx requests a graceful stop and then waits for the exit.
// Errors before launch (unknown channel, bad template, missing binary) are
// returned; the exit of the job itself is reported in the Status.
func (r *Runner) RunOnce(ctx context.Context, channelID int64, purpose model.Purpose) (supervisor.Status, error) {
	if purpose != model.PurposeLiveForward && purpose != model.PurposeRecord {
		return supervisor.Status{}, fmt.Errorf("%w: %s", ErrUnsupportedPurpose, purpose)
	}

	ch, err := r.store.Channel(ctx, channelID)
	if err != nil {
		return supervisor.Status{}, err
	}

	argv, err := r.builder.Build(ch, purpose)
	if err != nil {
		return supervisor.Status{}, fmt.Errorf("build command for channel %d: %w", channelID, err)
	}

	key := model.ManualKey(channelID)
	logger := r.logger.With().
		Str(log.FieldJobKey, key.String()).
		Str(log.FieldChannel, ch.Name).
		Str(log.FieldPurpose, string(purpose)).
		Logger()
	logger.Info().Str(log.FieldCommand, ffmpeg.Quote(argv)).Msg("starting job")

	// The child must outlive ctx so it can be stopped gracefully.
	h, err := r.launcher.Launch(context.WithoutCancel(ctx), key, argv)
	if err != nil {
		return supervisor.Status{}, fmt.Errorf("launch channel %d: %w", channelID, err)
	}

	select {
	case <-h.Done():
	case <-ctx.Done():
		logger.Info().Msg("interrupted, stopping job")
		if err := h.RequestStop(); err != nil {
			logger.Warn().Err(err).Msg("stop request failed")
		}
		<-h.Done()
	}

	st := h.Poll()
	logger.Info().Int(log.FieldExitCode, st.ExitCode).Str("signal", st.Signal).Msg("job finished")
	return st, nil
}
