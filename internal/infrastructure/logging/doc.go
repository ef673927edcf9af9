// Package logging provides structured logging for the Toon bridge.
//
// It wraps log/slog with JSON (production) or text (development) output,
// level filtering and default service/version fields on every entry.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	bridgeLog := logger.Component("bridge")
//	bridgeLog.Info("toon bridge online")
//
// Never log passwords, client secrets, authorization codes or access tokens.
package logging
