package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-toon/internal/audit"
)

// record writes an audit entry when an audit repository is configured.
// Failures are logged; they never fail the request.
func (s *Server) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if e.Actor == "" {
		e.Actor = subjectFromContext(ctx)
	}
	if err := s.audit.Create(ctx, &e); err != nil {
		s.logger.Warn("failed to write audit entry", "action", e.Action, "error", err)
	}
}

// handleListAudit returns audit entries, newest first.
// Query parameters: action, device, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit log is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		EntityID: q.Get("device"),
	}
	if len(filter.Action) > maxQueryParamLen || len(filter.EntityID) > maxQueryParamLen {
		writeBadRequest(w, "invalid filter")
		return
	}

	var err error
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if raw := q.Get("offset"); raw != "" {
		if filter.Offset, err = strconv.Atoi(raw); err != nil || filter.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeInternalError(w, "failed to read audit log")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// auditedConnector records successful account links made through the
// callback endpoint.
type auditedConnector struct {
	Bridge
	server *Server
}

func (c auditedConnector) AccountConnected(ctx context.Context, code, redirectURI string) error {
	if err := c.Bridge.AccountConnected(ctx, code, redirectURI); err != nil {
		return err
	}
	c.server.record(ctx, audit.Entry{
		Action:     audit.ActionAccountLinked,
		EntityType: audit.EntityBridge,
		Source:     audit.SourceCallback,
		Details:    map[string]any{"redirect_uri": redirectURI},
	})
	return nil
}
