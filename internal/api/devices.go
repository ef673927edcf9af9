package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-toon/internal/audit"
	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/hub"
)

// maxQueryParamLen caps IDs and channel names taken from the URL.
const maxQueryParamLen = 128

// handleListDevices returns the last applied snapshot of every device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	list := s.devices.Devices()
	out := make([]devices.Snapshot, 0, len(list))
	for _, d := range list {
		out = append(out, d.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": out,
		"count":   len(out),
	})
}

// handleGetDevice returns one device snapshot.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.devices.Device(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// handleDeleteDevice stops updating a device and drops its history.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.RemoveDevice(id); err != nil {
		if errors.Is(err, hub.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to remove device")
		return
	}

	if s.history != nil {
		if err := s.history.DeleteDevice(r.Context(), id); err != nil {
			s.logger.Warn("device removed but history not deleted", "device_id", id, "error", err)
		}
	}

	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionDeviceRemoved,
		EntityType: audit.EntityDevice,
		EntityID:   id,
		Source:     audit.SourceAPI,
	})
	s.logger.Info("device removed", "device_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetDeviceHistory returns recorded channel changes for a device,
// newest first. Query parameters: channel (optional filter), limit.
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}
	if _, ok := s.devices.Device(id); !ok {
		writeNotFound(w, "device not found")
		return
	}

	channel := r.URL.Query().Get("channel")
	if len(channel) > maxQueryParamLen {
		writeBadRequest(w, "invalid channel")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.GetHistory(r.Context(), id, channel, limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"entries":   entries,
		"count":     len(entries),
	})
}

// parseLimit parses the limit query parameter. Zero means the store default.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
