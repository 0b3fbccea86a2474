package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"homeplan/internal/ics"
	appLog "homeplan/internal/log"
	"homeplan/internal/presence"
)

// handlePresence returns the stored table, building it on first use.
//
// GET /api/presence
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	t, err := s.app.Presence.Current(r.Context())
	if err != nil {
		writePresenceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type refreshRequest struct {
	Weeks int `json:"weeks"`
}

type refreshResponse struct {
	Success    bool     `json:"success"`
	Days       int      `json:"days"`
	Events     int      `json:"events"`
	StaleFeeds []string `json:"stale_feeds,omitempty"`
}

// handlePresenceRefresh rebuilds the table.
//
// POST /api/presence/refresh {"weeks": 3}
//   - weeks: look-ahead window; omitted or non-positive uses the configured default
func (s *Server) handlePresenceRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Weeks == 0 {
		req.Weeks = parseIntDefault(r.URL.Query().Get("weeks"), 0)
	}
	if req.Weeks > 52 {
		writeError(w, http.StatusBadRequest, "weeks must be at most 52")
		return
	}

	appLog.Info("api presence refresh", "weeks", req.Weeks)
	t, err := s.app.Presence.Refresh(r.Context(), req.Weeks)
	if err != nil {
		writePresenceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success:    true,
		Days:       len(t.Days),
		Events:     len(t.MatchedEvents),
		StaleFeeds: t.StaleFeeds,
	})
}

// handlePresenceDay returns one day of the stored table.
//
// GET /api/presence/day/2024-06-07
func (s *Server) handlePresenceDay(w http.ResponseWriter, r *http.Request) {
	date, err := s.app.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.app.Presence.Current(r.Context())
	if err != nil {
		writePresenceError(w, err)
		return
	}
	day := t.Day(date)
	if day == nil {
		writeError(w, http.StatusNotFound, "No data for this date")
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// handleAbsencesICS publishes the forecast absences as a calendar feed.
//
// GET /api/presence/absences.ics
func (s *Server) handleAbsencesICS(w http.ResponseWriter, r *http.Request) {
	t, err := s.app.Presence.Current(r.Context())
	if err != nil {
		writePresenceError(w, err)
		return
	}
	body := ics.ExportAbsences("Household absences", s.app.Presence.Absences(t), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// writePresenceError keeps "calendar unreachable" distinguishable from
// every other failure.
func writePresenceError(w http.ResponseWriter, err error) {
	if errors.Is(err, presence.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	appLog.Error("presence request failed", err)
	writeError(w, http.StatusInternalServerError, "failed to read presence data")
}
