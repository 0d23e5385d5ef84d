package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/snapshot"
)

// handleListSystems returns the latest snapshot summary for every system id.
func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := s.snapshots.Systems(r.Context())
	if err != nil {
		s.logger.Error("failed to list systems", "error", err)
		writeInternalError(w, "failed to list systems")
		return
	}
	if systems == nil {
		systems = []snapshot.Summary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"systems": systems,
		"count":   len(systems),
	})
}

// handleGetSystem returns the latest normalised system.
func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleSystemHistory returns snapshot summaries, newest first.
//
// Query parameters:
//   - limit: max results (default 20, max 500)
func (s *Server) handleSystemHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := snapshot.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, snapshot.MaxHistoryLimit)
	}

	history, err := s.snapshots.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to list snapshot history", "system_id", id, "error", err)
		writeInternalError(w, "failed to list snapshot history")
		return
	}
	if len(history) == 0 {
		writeNotFound(w, "no snapshots for system "+id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system_id": id,
		"snapshots": history,
		"count":     len(history),
	})
}

// handleListZones returns the zones of the latest system with display strings.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}

	zones := snap.System.Zones()
	views := make([]climate.ZoneView, 0, len(zones))
	for _, z := range zones {
		views = append(views, z.View())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system_id": snap.SystemID,
		"zones":     views,
		"count":     len(views),
	})
}

// handleGetZone returns one zone of the latest system by its index.
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "zone index must be an integer")
		return
	}

	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}

	zone, found := snap.System.Zone(index)
	if !found {
		writeNotFound(w, "zone not found")
		return
	}
	writeJSON(w, http.StatusOK, zone.View())
}

// latestSnapshot loads the snapshot for the {id} URL parameter, writing
// the error response itself when it returns false.
func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	id := chi.URLParam(r, "id")

	snap, err := s.snapshots.Latest(r.Context(), id)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeNotFound(w, "system not found")
			return nil, false
		}
		s.logger.Error("failed to load system", "system_id", id, "error", err)
		writeInternalError(w, "failed to load system")
		return nil, false
	}
	return snap, true
}
