package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/pkg/httpcontext"
	"github.com/fastygo/shipops/repository"
	auditUC "github.com/fastygo/shipops/usecase/audit"
)

type AuditHandler struct {
	baseHandler
	uc *auditUC.UseCase
}

func NewAuditHandler(uc *auditUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Audit trail and history of a task
// @Tags audit
// @Router /api/v1/tasks/{id}/audit [get]
func (h *AuditHandler) GetTaskAudit(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	taskID := pathValue(ctx, "id")
	if taskID == "" {
		h.respondError(ctx, domain.ErrMissingTaskID)
		return
	}

	args := ctx.QueryArgs()
	limit := parseInt(string(args.Peek("limit")), 100)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.List(stdCtx, repository.AuditFilter{
		Entity:   domain.AuditEntityTasks,
		EntityID: taskID,
		Limit:    limit,
		Offset:   parseInt(string(args.Peek("offset")), 0),
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	history, err := h.uc.History(stdCtx, taskID, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"task_id": taskID,
		"entries": entries,
		"history": history,
	})
}
