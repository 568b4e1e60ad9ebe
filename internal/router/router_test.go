package router

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/shipops/api/handler"
	"github.com/fastygo/shipops/internal/infrastructure/monitor"
	auditUC "github.com/fastygo/shipops/usecase/audit"
	taskUC "github.com/fastygo/shipops/usecase/task"
	transportUC "github.com/fastygo/shipops/usecase/transport"
)

func denyAll(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(http.StatusUnauthorized)
	}
}

func TestRoutesAreProtected(t *testing.T) {
	handlers := Handlers{
		Task:   apiHandler.NewTaskHandler(taskUC.New(nil, nil, nil), nil, nil),
		Leg:    apiHandler.NewLegHandler(transportUC.New(nil, nil, nil, nil, nil, transportUC.Config{}), nil, nil, nil),
		Audit:  apiHandler.NewAuditHandler(auditUC.New(nil, nil, nil), nil, nil),
		Health: apiHandler.NewHealthHandler(monitor.New(nil, nil, nil, time.Second, nil), nil, nil),
		Metrics: func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(http.StatusOK)
			ctx.SetBodyString("# metrics")
		},
	}
	r := New(handlers, denyAll)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/health", http.StatusServiceUnavailable},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/v1/tasks", http.StatusUnauthorized},
		{"POST", "/api/v1/tasks", http.StatusUnauthorized},
		{"GET", "/api/v1/tasks/t1", http.StatusUnauthorized},
		{"PUT", "/api/v1/tasks/t1", http.StatusUnauthorized},
		{"DELETE", "/api/v1/tasks/t1", http.StatusUnauthorized},
		{"GET", "/api/v1/tasks/t1/legs", http.StatusUnauthorized},
		{"POST", "/api/v1/tasks/t1/legs/embarque-1/confirm", http.StatusUnauthorized},
		{"POST", "/api/v1/tasks/t1/legs/embarque-1/undo", http.StatusUnauthorized},
		{"PATCH", "/api/v1/tasks/t1/legs/embarque-1", http.StatusUnauthorized},
		{"GET", "/api/v1/tasks/t1/audit", http.StatusUnauthorized},
		{"POST", "/api/v1/tasks/t1/legs/embarque-1/approve", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			ctx := &fasthttp.RequestCtx{}
			ctx.Request.Header.SetMethod(tc.method)
			ctx.Request.SetRequestURI(tc.path)
			r.Handler(ctx)
			assert.Equal(t, tc.status, ctx.Response.StatusCode())
		})
	}
}

func TestMetricsRouteIsOptional(t *testing.T) {
	r := New(Handlers{
		Health: apiHandler.NewHealthHandler(monitor.New(nil, nil, nil, time.Second, nil), nil, nil),
		Task:   &apiHandler.TaskHandler{},
		Leg:    &apiHandler.LegHandler{},
		Audit:  &apiHandler.AuditHandler{},
	}, denyAll)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/metrics")
	r.Handler(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}
