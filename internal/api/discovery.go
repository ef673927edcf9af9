package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-toon/internal/audit"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// handleDiscoveryScan collects one snapshot and returns the devices in it.
func (s *Server) handleDiscoveryScan(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeUnavailable(w, "discovery is not enabled")
		return
	}

	msg, err := s.discovery.Scan(r.Context())
	switch {
	case err == nil:
		s.record(r.Context(), audit.Entry{
			Action:     audit.ActionDiscoveryScan,
			EntityType: audit.EntityBridge,
			Source:     audit.SourceAPI,
			Details:    map[string]any{"scan_id": msg.ScanID, "devices": len(msg.Devices)},
		})
		writeJSON(w, http.StatusOK, msg)
	case errors.Is(err, toon.ErrAuthorizationPending), errors.Is(err, toon.ErrNotInitialized):
		writeError(w, http.StatusConflict, ErrCodeNotAuthorized, "bridge is not authorized yet")
	case errors.Is(err, toon.ErrDisposed):
		writeUnavailable(w, "bridge is shutting down")
	default:
		s.logger.Warn("discovery scan failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "scan failed")
	}
}
