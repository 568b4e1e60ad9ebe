package httpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/shipops/pkg/logger"
)

func TestAttachPropagatesRequestID(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(HeaderRequestID, "req-123")

	stdCtx, cancel := NewAdapter(time.Second).Attach(ctx)
	defer cancel()

	assert.Equal(t, "req-123", appLogger.RequestIDFromContext(stdCtx))
	assert.Equal(t, "req-123", string(ctx.Response.Header.Peek(HeaderRequestID)))

	deadline, ok := stdCtx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestAttachGeneratesRequestID(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	stdCtx, cancel := NewAdapter(0).Attach(ctx)
	defer cancel()

	id := appLogger.RequestIDFromContext(stdCtx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, string(ctx.Response.Header.Peek(HeaderRequestID)))
}

func TestAttachStoresCaller(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(HeaderUserID, "user-1")
	ctx.Request.Header.Set(HeaderUserEmail, " ops@agency.example ")

	stdCtx, cancel := NewAdapter(time.Second).Attach(ctx)
	defer cancel()

	caller, ok := CallerFromContext(stdCtx)
	require.True(t, ok)
	assert.Equal(t, Caller{ID: "user-1", Email: "ops@agency.example"}, caller)
}

func TestCallerFromContextAnonymous(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	_, ok = CallerFromContext(WithCaller(context.Background(), Caller{Email: "x@example"}))
	assert.False(t, ok)
}
