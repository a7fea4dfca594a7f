package handlers

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kvanzuijlen/parq/internal/api/models"
	"github.com/kvanzuijlen/parq/internal/engine"
	"github.com/kvanzuijlen/parq/internal/logging"
)

// Resolve godoc
// @Summary Resolve a hostname
// @Description Races the configured resolvers for hostname's A record and returns the first answer
// @Tags resolve
// @Produce json
// @Param host query string true "Hostname to resolve"
// @Success 200 {object} models.ResolveResponse
// @Failure 400 {object} models.ResolveErrorResponse
// @Failure 404 {object} models.ResolveErrorResponse
// @Failure 502 {object} models.ResolveErrorResponse
// @Router /resolve [get]
func (h *Handler) Resolve(c *gin.Context) {
	hostname := c.Query("host")
	if hostname == "" {
		c.JSON(http.StatusBadRequest, models.ResolveErrorResponse{Error: "host query parameter is required"})
		return
	}

	h.total.Add(1)
	correlated := logging.WithCorrelation(h.Logger, uuid.NewString())

	result, err := h.Engine.Resolve(c.Request.Context(), h.Servers, hostname)
	if err != nil {
		var qerr *engine.QueryError
		status := http.StatusBadGateway
		kind := "unknown"
		if errors.As(err, &qerr) {
			kind = qerr.Kind.String()
			if qerr.Kind == engine.KindNXDomain {
				status = http.StatusNotFound
				h.nxdomain.Add(1)
			} else {
				h.failed.Add(1)
			}
		} else {
			h.failed.Add(1)
		}
		correlated.Warn("resolve failed", "hostname", hostname, "kind", kind)
		c.JSON(status, models.ResolveErrorResponse{Hostname: hostname, Kind: kind, Error: err.Error()})
		return
	}

	h.successful.Add(1)
	ip := net.IP(result.Address[:])
	correlated.Info("resolve succeeded", "hostname", hostname, "address", ip.String())
	c.JSON(http.StatusOK, models.ResolveResponse{
		Hostname:    hostname,
		Address:     ip.String(),
		TTL:         result.TTL,
		ServerIndex: result.ServerIndex,
	})
}
