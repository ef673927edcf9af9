package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-toon/internal/auth"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// healthCheckTimeout bounds each component check behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// OAuth2 redirect endpoint. Outside CORS: it is a browser navigation.
	callback := toon.NewCallbackHandler(auditedConnector{Bridge: s.bridge, server: s}, s.cfg.PublicURL, s.logger.Component("callback"))
	callback.TrustForwardedProto = s.cfg.TrustProxy
	r.Method(http.MethodGet, toon.CallbackPath, callback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		r.Use(s.bodySizeLimitMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/bridge", func(r chi.Router) {
			r.With(s.require(auth.PermBridgeRead)).Get("/", s.handleGetBridge)
			r.With(s.require(auth.PermBridgeRefresh)).Post("/refresh", s.handleRefreshBridge)
		})

		r.Route("/devices", func(r chi.Router) {
			r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
				r.With(s.require(auth.PermDeviceRemove)).Delete("/", s.handleDeleteDevice)
				r.With(s.require(auth.PermDeviceRead)).Get("/history", s.handleGetDeviceHistory)
			})
		})

		r.With(s.require(auth.PermDiscoveryScan)).Post("/discovery/scan", s.handleDiscoveryScan)
		r.With(s.require(auth.PermAuditRead)).Get("/audit", s.handleListAudit)
	})

	return r
}

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Bridge     bridgeResponse    `json:"bridge"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth reports the bridge status and each infrastructure check.
// A failing component makes the response 503 "degraded"; an OFFLINE bridge
// does not, since that is the normal state before the account is linked.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Bridge:  s.bridgeState(),
	}

	if len(s.checks) > 0 {
		resp.Components = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
