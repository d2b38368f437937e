package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/shoplake/reconciler/api/handler"
)

type Handlers struct {
	Health   *apiHandler.HealthHandler
	Pipeline *apiHandler.PipelineHandler
	Quality  *apiHandler.QualityHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/api/v1/pipeline/status", handlers.Pipeline.Status)
	r.POST("/api/v1/pipeline/run", handlers.Pipeline.Run)

	r.GET("/api/v1/quality/latest", handlers.Quality.Latest)

	return r
}
