package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/shipops/pkg/logger"
)

// Headers set by the auth middleware and read back by Attach.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

type callerKey struct{}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	ID    string
	Email string
}

// Adapter converts fasthttp.RequestCtx into a stdlib context with a deadline,
// the request id and the caller identity.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach derives a request-scoped context. The request id is echoed back in
// the response headers so clients can correlate audit entries.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := requestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set(HeaderRequestID, reqID)

	if caller := CallerFromRequest(ctx); caller.ID != "" {
		stdCtx = WithCaller(stdCtx, caller)
	}
	return stdCtx, cancel
}

// CallerFromRequest reads the identity headers left by the auth middleware.
func CallerFromRequest(ctx *fasthttp.RequestCtx) Caller {
	return Caller{
		ID:    strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderUserID))),
		Email: strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderUserEmail))),
	}
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by Attach; ok is false for
// anonymous requests.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok && caller.ID != ""
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID))); header != "" {
		return header
	}
	return uuid.NewString()
}
