package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

type SessionCounter interface {
	ActiveSessions(ctx context.Context) (int, error)
}

type HealthHandler struct {
	sessions SessionCounter
	now      func() time.Time
}

type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	ActiveSessions int    `json:"activeSessions"`
	Message        string `json:"message,omitempty"`
}

func NewHealthHandler(sessions SessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions, now: time.Now}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    statusHealthy,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	count, err := h.sessions.ActiveSessions(ctx)
	if err != nil {
		resp.Status = statusDegraded
		resp.Message = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.ActiveSessions = count
	c.JSON(http.StatusOK, resp)
}
