package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/api/transport"
	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/pkg/httpcontext"
	"github.com/fastygo/shipops/repository"
	transportUC "github.com/fastygo/shipops/usecase/transport"
)

type LegHandler struct {
	baseHandler
	uc    *transportUC.UseCase
	users repository.UserRepository
}

// NewLegHandler wires the leg endpoints. users may be nil, in which case the
// actor email is taken from the request headers only.
func NewLegHandler(uc *transportUC.UseCase, users repository.UserRepository, adapter *httpcontext.Adapter, logger *zap.Logger) *LegHandler {
	return &LegHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		users:       users,
	}
}

// @Summary List transport legs of a task
// @Tags legs
// @Router /api/v1/tasks/{id}/legs [get]
func (h *LegHandler) GetLegs(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.Legs(stdCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Confirm a transport leg
// @Tags legs
// @Router /api/v1/tasks/{id}/legs/{legId}/confirm [post]
func (h *LegHandler) ConfirmLeg(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.ConfirmLegRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.respondInvalid(ctx, "invalid payload")
			return
		}
	}
	h.transition(ctx, userID, req.Operation())
}

// @Summary Undo a transport leg confirmation
// @Tags legs
// @Router /api/v1/tasks/{id}/legs/{legId}/undo [post]
func (h *LegHandler) UndoLeg(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	h.transition(ctx, userID, domain.UndoLeg{})
}

// @Summary Edit transport leg fields
// @Tags legs
// @Router /api/v1/tasks/{id}/legs/{legId} [patch]
func (h *LegHandler) EditLeg(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.EditLegRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	h.transition(ctx, userID, req.Operation())
}

// transition runs op for an already authenticated caller.
func (h *LegHandler) transition(ctx *fasthttp.RequestCtx, userID string, op domain.LegOperation) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	caller := httpcontext.CallerFromRequest(ctx)
	actor := domain.Actor{ID: userID, Email: caller.Email}
	if actor.Email == "" && h.users != nil {
		if resolved, err := h.users.ResolveActor(stdCtx, userID); err == nil {
			actor = resolved
		} else {
			h.logger.Debug("actor lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	result, err := h.uc.Transition(stdCtx, transportUC.TransitionRequest{
		TaskID:    pathValue(ctx, "id"),
		LegID:     pathValue(ctx, "legId"),
		Operation: op,
		Actor:     actor,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var meta any
	if result.AuditError != nil {
		meta = transport.AuditFailed(result.AuditError)
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(result, meta))
}
