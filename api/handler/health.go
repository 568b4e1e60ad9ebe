package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/api/transport"
	"github.com/fastygo/shipops/internal/infrastructure/monitor"
	"github.com/fastygo/shipops/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

type dependencyState struct {
	Online bool   `json:"online"`
	Note   string `json:"note,omitempty"`
}

type bufferState struct {
	Online  bool `json:"online"`
	Pending int  `json:"pending"`
}

type healthReport struct {
	Timestamp time.Time       `json:"timestamp"`
	LastCheck time.Time       `json:"last_check"`
	Postgres  dependencyState `json:"postgresql"`
	Redis     dependencyState `json:"redis"`
	Buffer    bufferState     `json:"buffer"`
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	report := healthReport{
		Timestamp: time.Now().UTC(),
		LastCheck: status.LastCheck,
		Postgres:  dependencyState{Online: status.PostgreSQL},
		Redis:     dependencyState{Online: status.Redis},
		Buffer:    bufferState{Online: status.Buffer, Pending: status.BufferSize},
	}
	if !status.RedisLock {
		report.Redis.Note = "task lock disabled"
	}

	if status.Healthy() {
		h.respondSuccess(ctx, http.StatusOK, report)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "postgresql unavailable", report))
}
