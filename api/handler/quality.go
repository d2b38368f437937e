package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shoplake/reconciler/api/transport"
	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/internal/services"
	"github.com/shoplake/reconciler/pkg/httpcontext"
)

type QualityHandler struct {
	baseHandler
	pipeline *services.Pipeline
}

func NewQualityHandler(pipeline *services.Pipeline, adapter *httpcontext.Adapter, logger *zap.Logger) *QualityHandler {
	return &QualityHandler{
		baseHandler: newBaseHandler(adapter, logger),
		pipeline:    pipeline,
	}
}

// Latest returns the most recent quality report held in memory.
func (h *QualityHandler) Latest(ctx *fasthttp.RequestCtx) {
	report := h.pipeline.LatestReport()
	if report == nil {
		h.respondError(ctx, domain.ErrReportNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}

func errEnvelope(code, message string) transport.Envelope {
	return transport.NewError(code, message, nil)
}
