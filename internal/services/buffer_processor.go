package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/internal/infrastructure/buffer"
	"github.com/fastygo/shipops/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention bounds how long task operations wait before being discarded.
	// Audit items never expire.
	Retention time.Duration
}

// BufferProcessor replays buffered task operations and audit entries once
// Postgres is reachable again.
type BufferProcessor struct {
	store     *buffer.Store
	monitor   ConnectionHealth
	taskRepo  repository.TaskRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ProcessorConfig
	replayers map[string]replayFunc
}

type replayFunc func(ctx context.Context, item buffer.Item) error

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	taskRepo repository.TaskRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:     store,
		monitor:   monitor,
		taskRepo:  taskRepo,
		auditRepo: auditRepo,
		logger:    logger.Named("buffer"),
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}
	bp.replayers = map[string]replayFunc{
		buffer.EntityAudit: bp.replayAudit,
		buffer.EntityTask:  bp.replayTask,
	}
	bp.schedule()
	return bp
}

func (bp *BufferProcessor) schedule() {
	drainEvery := fmt.Sprintf("@every %ds", max(int(bp.cfg.Interval.Seconds()), 1))
	if _, err := bp.cron.AddFunc(drainEvery, bp.drainJob); err != nil {
		bp.logger.Error("invalid drain schedule", zap.String("spec", drainEvery), zap.Error(err))
	}
	if bp.cfg.Retention > 0 {
		if _, err := bp.cron.AddFunc("@hourly", bp.cleanupJob); err != nil {
			bp.logger.Error("invalid cleanup schedule", zap.Error(err))
		}
	}
}

func (bp *BufferProcessor) drainJob() {
	ctx, cancel := context.WithTimeout(context.Background(), bp.cfg.Interval)
	defer cancel()
	if err := bp.Drain(ctx); err != nil {
		bp.logger.Error("buffer drain failed", zap.Error(err))
	}
}

func (bp *BufferProcessor) cleanupJob() {
	removed, err := bp.store.Cleanup(time.Now().Add(-bp.cfg.Retention))
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		bp.logger.Warn("expired buffered task operations discarded", zap.Int("count", removed))
	}
}

func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain to finish or for ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	select {
	case <-bp.cron.Stop().Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Drain replays one batch synchronously. Audit items are never dropped after
// MaxRetries; they stay queued until they are written.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := bp.replay(ctx, item); err != nil {
			if isPermanent(err) {
				bp.deadLetter(item, err)
			} else {
				bp.retryLater(item, err)
			}
			continue
		}
		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge replayed buffer item", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
	return nil
}

func (bp *BufferProcessor) retryLater(item buffer.Item, cause error) {
	item.Retries++
	log := bp.logger.With(
		zap.String("item_id", item.ID),
		zap.String("entity", item.Entity),
		zap.String("task_id", item.TaskID),
		zap.Int("retries", item.Retries),
	)
	log.Error("buffer replay failed", zap.Error(cause))

	if item.Retries >= bp.cfg.MaxRetries && item.Entity != buffer.EntityAudit {
		log.Warn("dropping buffered task operation (max retries reached)")
		_ = bp.store.Remove(item)
		return
	}
	if err := bp.store.Requeue(item); err != nil {
		log.Error("failed to requeue buffer item", zap.Error(err))
	}
}

func (bp *BufferProcessor) deadLetter(item buffer.Item, cause error) {
	bp.logger.Error("buffer item cannot be replayed, moved to dead letters",
		zap.String("item_id", item.ID),
		zap.String("entity", item.Entity),
		zap.String("task_id", item.TaskID),
		zap.Error(cause),
	)
	if err := bp.store.DeadLetter(item, cause.Error()); err != nil {
		bp.logger.Error("failed to dead-letter buffer item", zap.String("item_id", item.ID), zap.Error(err))
	}
}

// permanentError marks a replay failure that no retry can fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	var perm permanentError
	return errors.As(err, &perm)
}

// BufferOperation tries the write immediately while online and persists it
// for replay otherwise.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errNotConfigured
	}
	if bp.monitor == nil || bp.monitor.IsOnline() {
		err := bp.replay(ctx, item)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		bp.logger.Warn("immediate write failed, buffering", zap.String("entity", item.Entity), zap.Error(err))
	}
	return bp.store.Enqueue(item)
}

// Park stores the item for the next drain without trying it first.
func (bp *BufferProcessor) Park(item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errNotConfigured
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items, or zero if the store is unreadable.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

var errNotConfigured = errors.New("buffer processor not configured")

func (bp *BufferProcessor) replay(ctx context.Context, item buffer.Item) error {
	replay, ok := bp.replayers[item.Entity]
	if !ok {
		return fmt.Errorf("unsupported entity %q", item.Entity)
	}
	return replay(ctx, item)
}

// replayAudit is safe to repeat: the audit tables ignore duplicate ids.
func (bp *BufferProcessor) replayAudit(ctx context.Context, item buffer.Item) error {
	var payload buffer.AuditPayload
	if err := json.Unmarshal(item.Data, &payload); err != nil {
		return permanentError{fmt.Errorf("decode audit payload: %w", err)}
	}
	return bp.auditRepo.AppendTransition(ctx, payload.Entry, payload.History)
}

func (bp *BufferProcessor) replayTask(ctx context.Context, item buffer.Item) error {
	var task domain.Task
	if err := json.Unmarshal(item.Data, &task); err != nil {
		return permanentError{fmt.Errorf("decode task payload: %w", err)}
	}
	switch item.Operation {
	case buffer.OperationCreate:
		_, err := bp.taskRepo.Create(ctx, &task)
		return err
	case buffer.OperationUpdate:
		return bp.taskRepo.Update(ctx, &task)
	case buffer.OperationDelete:
		if err := bp.taskRepo.Delete(ctx, task.ID); err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported task operation %q", item.Operation)
	}
}
