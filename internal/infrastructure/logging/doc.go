// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Output goes to stderr by default. In --mcp mode stdout carries the
// JSON-RPC stream, so nothing else may be written there.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Info("Control plane listening", zap.String("addr", addr))
//	logger.Session(id).Error("Spawn failed", zap.Error(err))
package logging
