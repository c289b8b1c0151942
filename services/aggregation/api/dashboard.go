package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/storage"
)

const defaultSummaryRange = 24 * time.Hour

type orderRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

func (s *server) handleGetMetrics(c *gin.Context) {
	results, err := s.storage.GetLatestMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type responseMetric struct {
		Name           string  `json:"name"`
		Agent          string  `json:"agent"`
		Value          float64 `json:"value"`
		Unit           string  `json:"unit"`
		NumAggregation int     `json:"numAggregation"`
		DisplayOrder   int     `json:"displayOrder"`
		RecordedAt     int64   `json:"recordedAt"`
	}

	out := make([]responseMetric, 0, len(results))
	for _, r := range results {
		if len(r.History) > 0 {
			out = append(out, responseMetric{
				Name:           r.Name,
				Agent:          r.Agent,
				Value:          r.History[0].Value,
				Unit:           r.Unit,
				NumAggregation: r.NumAggregation,
				DisplayOrder:   r.DisplayOrder,
				RecordedAt:     r.History[0].RecordedAt,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"metrics": out})
}

func (s *server) handleGetMetricHistory(c *gin.Context) {
	name := c.Param("name")
	hist, err := s.storage.GetMetricHistory(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrMetricNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, hist)
}

func (s *server) handleDeleteMetric(c *gin.Context) {
	name := c.Param("name")
	err := s.storage.DeleteMetric(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleGetPanels(c *gin.Context) {
	configs, err := s.storage.GetPanelsConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"panels": configs})
}

func (s *server) bindOrder(c *gin.Context) (orderRequest, bool) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Name) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return req, false
	}

	return req, true
}

func (s *server) handleUpdatePanelOrder(c *gin.Context) {
	req, ok := s.bindOrder(c)
	if !ok {
		return
	}

	err := s.storage.UpdatePanelOrder(c.Request.Context(), req.Name, req.Order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleUpdateMetricOrder(c *gin.Context) {
	req, ok := s.bindOrder(c)
	if !ok {
		return
	}

	err := s.storage.UpdateMetricOrder(c.Request.Context(), req.Name, req.Order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleGetErrors(c *gin.Context) {
	query := common.ErrorQuery{
		Agent:    c.Query("agent"),
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
	}

	resolved := c.Query("resolved")
	if len(resolved) > 0 {
		value, err := strconv.ParseBool(resolved)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolved filter"})
			return
		}
		query.Resolved = &value
	}

	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	query.Limit = limit

	records, err := s.storage.GetErrors(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": records})
}

// intQuery parses an optional integer query parameter, answering 400 when it is malformed
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if len(raw) == 0 {
		return 0, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}

	return value, true
}

func (s *server) handleGetErrorSummary(c *gin.Context) {
	rangeInSeconds, ok := intQuery(c, "rangeInSeconds")
	if !ok {
		return
	}

	timeRange := defaultSummaryRange
	if rangeInSeconds > 0 {
		timeRange = time.Duration(rangeInSeconds) * time.Second
	}

	summary, err := s.storage.GetErrorSummary(c.Request.Context(), time.Now().Add(-timeRange).UnixMilli())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *server) handleResolveError(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	// the body is optional
	_ = c.ShouldBindJSON(&req)

	s.setResolution(c, common.Resolution{
		Resolved:   true,
		Notes:      req.Notes,
		ResolvedBy: c.GetString(usernameContextKey),
		ResolvedAt: time.Now().UnixMilli(),
	})
}

func (s *server) handleUnresolveError(c *gin.Context) {
	s.setResolution(c, common.Resolution{})
}

func (s *server) setResolution(c *gin.Context, resolution common.Resolution) {
	id := c.Param("id")
	found, err := s.storage.SetResolution(c.Request.Context(), id, resolution)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "error record not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleGetAlerts(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	var since int64
	rawSince := c.Query("since")
	if len(rawSince) > 0 {
		var err error
		since, err = strconv.ParseInt(rawSince, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
	}

	alerts, err := s.storage.GetAlerts(c.Request.Context(), common.AlertQuery{
		Agent: c.Query("agent"),
		Since: since,
		Limit: limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
