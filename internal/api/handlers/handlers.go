// Package handlers implements parqd's HTTP handlers: everything from
// health and stats to the actual resolve endpoint that drives the engine.
package handlers

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kvanzuijlen/parq/internal/engine"
)

// Handler holds the dependencies every route needs.
type Handler struct {
	Engine     *engine.Engine
	Servers    []engine.Endpoint
	Logger     *slog.Logger
	startTime  time.Time
	total      atomic.Uint64
	successful atomic.Uint64
	nxdomain   atomic.Uint64
	failed     atomic.Uint64
}

// New builds a Handler wired to eng and servers.
func New(eng *engine.Engine, servers []engine.Endpoint, logger *slog.Logger) *Handler {
	return &Handler{Engine: eng, Servers: servers, Logger: logger, startTime: time.Now()}
}
