package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shoplake/reconciler/internal/services"
	"github.com/shoplake/reconciler/pkg/httpcontext"
	"github.com/shoplake/reconciler/pkg/logger"
)

type PipelineHandler struct {
	baseHandler
	pipeline *services.Pipeline
}

func NewPipelineHandler(pipeline *services.Pipeline, adapter *httpcontext.Adapter, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		baseHandler: newBaseHandler(adapter, logger),
		pipeline:    pipeline,
	}
}

// Status returns whether a run is active plus the last run summary.
func (h *PipelineHandler) Status(ctx *fasthttp.RequestCtx) {
	running, last := h.pipeline.Status()
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"running":  running,
		"last_run": last,
	})
}

// Run triggers a batch run in the background. An optional date query
// parameter (YYYY-MM-DD) selects which live drop to ingest; defaults to
// today.
func (h *PipelineHandler) Run(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	runDate := time.Now().UTC()
	if raw := string(ctx.QueryArgs().Peek("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.respondJSON(ctx, http.StatusBadRequest, errEnvelope("INVALID", "date must be YYYY-MM-DD"))
			return
		}
		runDate = parsed
	}

	runID, err := h.pipeline.TriggerAsync(runDate)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	logger.WithRequestID(reqCtx, h.logger).Info("pipeline run triggered",
		zap.String("run_id", runID),
		zap.String("run_date", runDate.Format("2006-01-02")))
	h.respondSuccess(ctx, http.StatusAccepted, map[string]interface{}{
		"run_id":   runID,
		"run_date": runDate.Format("2006-01-02"),
	})
}
