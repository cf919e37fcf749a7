// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

// CommandResponse is a rendered channel command.
type CommandResponse struct {
	ChannelID int64         `json:"channel_id"`
	Purpose   model.Purpose `json:"purpose"`
	Argv      []string      `json:"argv"`
	Command   string        `json:"command"`
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Jobs.Snapshot())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := BuildOverview(r.Context(), s.deps.Store)
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("overview failed")
		writeErrorCode(w, http.StatusServiceUnavailable, errors.New("store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, http.StatusBadRequest, fmt.Errorf("invalid channel id %q", chi.URLParam(r, "id")))
		return
	}
	purpose := model.Purpose(r.URL.Query().Get("purpose"))
	if purpose == "" {
		purpose = model.PurposeLiveForward
	}

	ch, err := s.deps.Store.Channel(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeErrorCode(w, http.StatusServiceUnavailable, errors.New("store unavailable"))
		return
	}

	argv, err := s.deps.Commands.Preview(ch, purpose)
	if err != nil {
		var tmplErr *ffmpeg.TemplateError
		switch {
		case errors.Is(err, ffmpeg.ErrUnknownPurpose):
			writeErrorCode(w, http.StatusBadRequest, err)
		case errors.Is(err, ffmpeg.ErrPurposeNotImplemented):
			writeErrorCode(w, http.StatusNotImplemented, err)
		case errors.As(err, &tmplErr):
			writeErrorCode(w, http.StatusUnprocessableEntity, err)
		default:
			writeErrorCode(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, CommandResponse{
		ChannelID: id,
		Purpose:   purpose,
		Argv:      argv,
		Command:   ffmpeg.Quote(argv),
	})
}
