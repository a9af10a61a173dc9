package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// startRunRequest is the POST /api/v1/runs body: an ISO 8601
// minute-truncated, inclusive date range, matching the CLI's date-range
// argument shape (spec.md §6).
type startRunRequest struct {
	StartUTC string `json:"start_utc" binding:"required"`
	EndUTC   string `json:"end_utc" binding:"required"`
}

const isoMinuteLayout = "2006-01-02T15:04:00Z"

func toMinuteTS(iso string) (int64, error) {
	t, err := time.Parse(isoMinuteLayout, iso)
	if err != nil {
		t, err = time.Parse(time.RFC3339, iso)
		if err != nil {
			return 0, err
		}
	}
	return t.Unix() / 60, nil
}

func (s *Server) handleStartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startTS, err := toMinuteTS(req.StartUTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_utc: " + err.Error()})
		return
	}
	endTS, err := toMinuteTS(req.EndUTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_utc: " + err.Error()})
		return
	}
	if endTS < startTS {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_utc precedes start_utc"})
		return
	}

	status, err := s.runs.StartRun(c.Request.Context(), startTS, endTS)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, status)
}

func (s *Server) handleRunStatus(c *gin.Context) {
	id := c.Param("id")
	status, ok := s.runs.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}
