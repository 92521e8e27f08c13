// Package http provides the UI gateway's REST handlers.
//
// The gateway is the local UI's command surface: session lifecycle, buffer
// reattach, control-plane replies and a few read-only catalogs. Live output
// and control actions are pushed over the WebSocket stream instead.
//
// Endpoints:
//   - Health: / and /health, Prometheus at /metrics
//   - Sessions: /sessions, /sessions/:id, /sessions/:id/{write,resize,buffer}
//   - Control: /control/reply
//   - Catalogs: /themes, /distros
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, controlServer, bus, metrics)
//	router.POST("/sessions", handlers.Spawn)
//	router.GET("/sessions/:id/buffer", handlers.ReadBuffer)
package http
