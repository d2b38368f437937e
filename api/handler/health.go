package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shoplake/reconciler/api/transport"
	"github.com/shoplake/reconciler/internal/infrastructure/monitor"
	"github.com/shoplake/reconciler/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// Check reports collaborator health. Redis is advisory (dedup cache only),
// so it does not degrade the overall verdict.
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"warehouse": status.Warehouse,
			"redis":     status.Redis,
			"raw_store": map[string]interface{}{
				"online": status.RawStore,
				"events": status.RawEvents,
			},
		},
	}

	if status.Warehouse && status.RawStore {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
