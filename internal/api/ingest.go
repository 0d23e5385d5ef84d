package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/gray-logic-climate/internal/ingest"
)

// ingestResponse is the body of a successful POST /ingest.
type ingestResponse struct {
	SnapshotID   string `json:"snapshot_id,omitempty"`
	SystemID     string `json:"system_id"`
	Zones        int    `json:"zones"`
	Circuits     int    `json:"circuits"`
	HotWater     int    `json:"domestic_hot_water"`
	Devices      int    `json:"devices"`
	HasOwnership bool   `json:"has_ownership"`
}

// handleIngest runs the request body through the pipeline. Rejected
// payloads answer 422 with the error kind; sink failures answer 500.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		writeUnavailable(w, "ingest not configured")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	result, err := s.ingester.Ingest(r.Context(), ingest.SourceAPI, payload)
	if err != nil {
		if ingest.IsValidation(err) {
			writeValidationError(w, ingest.Kind(err), err.Error())
			return
		}
		s.logger.Error("ingest failed", "kind", ingest.Kind(err), "subject", r.Context().Value(ctxKeySubject), "error", err)
		writeInternalError(w, "ingest failed")
		return
	}

	sys := result.System
	writeJSON(w, http.StatusCreated, ingestResponse{
		SnapshotID:   result.SnapshotID,
		SystemID:     sys.ID(),
		Zones:        len(sys.Zones()),
		Circuits:     len(sys.Circuits()),
		HotWater:     len(sys.DomesticHotWater()),
		Devices:      len(result.Devices),
		HasOwnership: sys.HasOwnership(),
	})
}
