package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-toon/internal/audit"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// bridgeResponse describes the bridge connection.
type bridgeResponse struct {
	Online     bool        `json:"online"`
	Status     string      `json:"status"`
	Reason     toon.Reason `json:"reason,omitempty"`
	Message    string      `json:"message,omitempty"`
	Phase      toon.Phase  `json:"phase"`
	Authorized bool        `json:"authorized"`
}

func (s *Server) bridgeState() bridgeResponse {
	status := s.bridge.Status()
	return bridgeResponse{
		Online:     status.Online,
		Status:     status.String(),
		Reason:     status.Reason,
		Message:    status.Message,
		Phase:      s.bridge.Phase(),
		Authorized: s.bridge.Authorized(),
	}
}

// handleGetBridge returns the bridge connection status.
func (s *Server) handleGetBridge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridgeState())
}

// handleRefreshBridge restarts the poll loop. The poll itself runs
// asynchronously, so the response is 202 whatever its outcome.
func (s *Server) handleRefreshBridge(w http.ResponseWriter, r *http.Request) {
	s.bridge.RequestRefresh()
	s.record(r.Context(), audit.Entry{
		Action:     audit.ActionRefresh,
		EntityType: audit.EntityBridge,
		Source:     audit.SourceAPI,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}
