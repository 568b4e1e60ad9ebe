package transport

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/pkg/logger"
	"github.com/fastygo/shipops/repository"
	"github.com/fastygo/shipops/usecase"
)

// Metrics receives transition outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveTransition(action domain.LegAction, result string)
	ObserveConflict()
	ObserveAuditFailure(action domain.LegAction)
}

// Config tunes the transition loop.
type Config struct {
	// MaxRetries is how many times a transition is recomputed after a version conflict.
	MaxRetries int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type UseCase struct {
	tasks   repository.TaskRepository
	audit   usecase.AuditRecorder
	locker  repository.TaskLocker
	metrics Metrics
	logger  *zap.Logger
	cfg     Config
}

func New(
	tasks repository.TaskRepository,
	audit usecase.AuditRecorder,
	locker repository.TaskLocker,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &UseCase{
		tasks:   tasks,
		audit:   audit,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// TransitionRequest addresses one leg of one task.
type TransitionRequest struct {
	TaskID    string
	LegID     string
	Operation domain.LegOperation
	Actor     domain.Actor
}

// TransitionResult is returned once the new leg list is committed.
// AuditError is set when the audit trail could not be written; the
// transition itself stays committed.
type TransitionResult struct {
	TaskID     string                  `json:"task_id"`
	Action     domain.LegAction        `json:"action"`
	Leg        domain.Leg              `json:"leg"`
	Previous   domain.Leg              `json:"previous"`
	Legs       []domain.Leg            `json:"legs"`
	Summary    domain.TransportSummary `json:"summary"`
	Version    int                     `json:"version"`
	AuditError error                   `json:"-"`
}

// LegView is the read model of a task's transport legs.
type LegView struct {
	TaskID  string                  `json:"task_id"`
	Source  domain.LegSource        `json:"source"`
	Legs    []domain.Leg            `json:"legs"`
	Summary domain.TransportSummary `json:"summary"`
	Version int                     `json:"version"`
}

// Legs returns the stored leg list, or the derived one if the task has none yet.
func (uc *UseCase) Legs(ctx context.Context, taskID string) (*LegView, error) {
	if taskID == "" {
		return nil, domain.ErrMissingTaskID
	}
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	set := domain.ResolveLegs(task)
	summary := task.Summary()
	if set.Source == domain.LegsDerived {
		summary = domain.AggregateLegs(set.Legs, summary, uc.cfg.Clock())
	}
	legs := set.Legs
	if legs == nil {
		legs = []domain.Leg{}
	}
	return &LegView{
		TaskID:  task.ID,
		Source:  set.Source,
		Legs:    legs,
		Summary: summary,
		Version: task.Version,
	}, nil
}

// Transition loads the task, applies the operation to the addressed leg,
// recomputes the aggregate status and commits all three transport fields in a
// single conditional write. Version conflicts are retried from a fresh read.
// The audit trail is written after the commit.
func (uc *UseCase) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.TaskID == "" {
		return nil, domain.ErrMissingTaskID
	}
	if req.LegID == "" {
		return nil, domain.ErrMissingLegID
	}
	if req.Operation == nil {
		return nil, domain.ErrInvalidOperation
	}

	action := req.Operation.Action()
	log := logger.WithRequestID(ctx, uc.logger).With(
		zap.String("task_id", req.TaskID),
		zap.String("leg_id", req.LegID),
		zap.String("action", string(action)),
	)

	if uc.locker != nil {
		release, err := uc.locker.Acquire(ctx, req.TaskID)
		switch {
		case err == nil:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("failed to release task lock", zap.Error(err))
				}
			}()
		case errors.Is(err, domain.ErrTaskLocked):
			uc.observe(action, "locked")
			return nil, err
		case ctx.Err() != nil:
			uc.observe(action, "error")
			return nil, err
		default:
			// The version guard still rejects concurrent writes.
			log.Warn("task lock unavailable, continuing without it", zap.Error(err))
		}
	}

	var (
		result *TransitionResult
		at     time.Time
		err    error
	)
	for attempt := 0; attempt <= uc.cfg.MaxRetries; attempt++ {
		result, at, err = uc.commit(ctx, req)
		if !errors.Is(err, domain.ErrVersionConflict) {
			break
		}
		if uc.metrics != nil {
			uc.metrics.ObserveConflict()
		}
		log.Debug("transport version conflict, retrying", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		uc.observe(action, resultLabel(err))
		return nil, err
	}

	change := usecase.LegChange{
		TaskID: req.TaskID,
		LegID:  req.LegID,
		Action: action,
		Old:    result.Previous,
		New:    result.Leg,
		Actor:  req.Actor,
		At:     at,
	}
	if uc.audit != nil {
		if auditErr := uc.audit.Record(ctx, change); auditErr != nil {
			result.AuditError = auditErr
			if uc.metrics != nil {
				uc.metrics.ObserveAuditFailure(action)
			}
			log.Error("transition committed but audit trail write failed", zap.Error(auditErr))
		}
	}

	uc.observe(action, "ok")
	log.Info("transport leg updated",
		zap.String("leg_status", string(result.Leg.Status)),
		zap.String("transport_status", string(result.Summary.Status)),
		zap.Int("version", result.Version),
	)
	return result, nil
}

// commit returns the clock reading used for the transition so the audit
// entry carries the same timestamp as the leg.
func (uc *UseCase) commit(ctx context.Context, req TransitionRequest) (*TransitionResult, time.Time, error) {
	task, err := uc.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, time.Time{}, err
	}

	now := uc.cfg.Clock()
	set := domain.ResolveLegs(task)

	transition, err := domain.ApplyLegOperation(set.Legs, req.LegID, req.Operation, now)
	if err != nil {
		return nil, time.Time{}, err
	}

	summary := domain.AggregateLegs(transition.Legs, task.Summary(), now)

	version, err := uc.tasks.SaveTransport(ctx, task.ID, task.Version, transition.Legs, summary.Status, summary.CompletedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	return &TransitionResult{
		TaskID:   task.ID,
		Action:   transition.Action,
		Leg:      transition.New,
		Previous: transition.Old,
		Legs:     transition.Legs,
		Summary:  summary,
		Version:  version,
	}, now, nil
}

func (uc *UseCase) observe(action domain.LegAction, result string) {
	if uc.metrics != nil {
		uc.metrics.ObserveTransition(action, result)
	}
}

func resultLabel(err error) string {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return "not_found"
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return "invalid"
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return "conflict"
	default:
		return "error"
	}
}
