package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const (
	kindSamples = "samples"
	kindErrors  = "errors"
	kindAlerts  = "alerts"
)

func (s *server) bindBatch(c *gin.Context) (agentCommon.Batch, bool) {
	var batch agentCommon.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return batch, false
	}
	if len(batch.Agent) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return batch, false
	}

	return batch, true
}

func (s *server) storageFailed(c *gin.Context, kind string, agent string, err error) {
	log.Warn("failed to store reported data", "kind", kind, "agent", agent, "error", err)
	s.failures.WithLabelValues(kind).Inc()
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *server) handleIngestMetrics(c *gin.Context) {
	batch, ok := s.bindBatch(c)
	if !ok {
		return
	}

	log.Debug("received samples", "agent", batch.Agent, "sender", c.Request.RemoteAddr, "num samples", len(batch.Samples))

	numStored, err := s.storage.SaveSamples(c.Request.Context(), batch.Agent, batch.Samples)
	if err != nil {
		s.storageFailed(c, kindSamples, batch.Agent, err)
		return
	}

	s.ingested.WithLabelValues(kindSamples).Add(float64(numStored))
	c.JSON(http.StatusOK, gin.H{"ok": true, "accepted": numStored})
}

func (s *server) handleIngestErrors(c *gin.Context) {
	batch, ok := s.bindBatch(c)
	if !ok {
		return
	}

	log.Debug("received error records", "agent", batch.Agent, "sender", c.Request.RemoteAddr, "num errors", len(batch.Errors))

	numStored, err := s.storage.SaveErrors(c.Request.Context(), batch.Agent, batch.Errors)
	if err != nil {
		s.storageFailed(c, kindErrors, batch.Agent, err)
		return
	}

	s.ingested.WithLabelValues(kindErrors).Add(float64(numStored))
	c.JSON(http.StatusOK, gin.H{"ok": true, "accepted": numStored})
}

func (s *server) handleIngestAlerts(c *gin.Context) {
	batch, ok := s.bindBatch(c)
	if !ok {
		return
	}

	log.Debug("received alerts", "agent", batch.Agent, "sender", c.Request.RemoteAddr, "num alerts", len(batch.Alerts))

	stored, err := s.storage.SaveAlerts(c.Request.Context(), batch.Agent, batch.Alerts)
	if err != nil {
		s.storageFailed(c, kindAlerts, batch.Agent, err)
		return
	}

	s.ingested.WithLabelValues(kindAlerts).Add(float64(len(stored)))
	s.hub.broadcast(stored)
	c.JSON(http.StatusOK, gin.H{"ok": true, "accepted": len(stored)})
}
