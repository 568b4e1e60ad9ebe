package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/shipops/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Leg    *apiHandler.LegHandler
	Audit  *apiHandler.AuditHandler
	Health *apiHandler.HealthHandler
	// Metrics is mounted on /metrics when set.
	Metrics fasthttp.RequestHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	// Transport legs
	r.GET("/api/v1/tasks/{id}/legs", authMiddleware(handlers.Leg.GetLegs))
	r.POST("/api/v1/tasks/{id}/legs/{legId}/confirm", authMiddleware(handlers.Leg.ConfirmLeg))
	r.POST("/api/v1/tasks/{id}/legs/{legId}/undo", authMiddleware(handlers.Leg.UndoLeg))
	r.PATCH("/api/v1/tasks/{id}/legs/{legId}", authMiddleware(handlers.Leg.EditLeg))

	r.GET("/api/v1/tasks/{id}/audit", authMiddleware(handlers.Audit.GetTaskAudit))

	return r
}
