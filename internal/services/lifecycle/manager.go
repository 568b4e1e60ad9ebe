package lifecycle

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StopFunc releases one component during shutdown.
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager owns the service's run context. Components register a stop hook as
// they are built and are stopped in reverse order, so dependents close before
// the connections they use.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	components []component

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// New returns a manager whose context is cancelled on SIGINT, SIGTERM, a
// failed background component, or an explicit Stop.
func New(parent context.Context, timeout time.Duration, logger *zap.Logger) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &Manager{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context is cancelled once the service should stop.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a component stop hook.
func (m *Manager) Register(name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, stop: stop})
}

// Go runs fn in the background. A non-nil error from fn stops the service.
func (m *Manager) Go(name string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
			m.cancel(err)
		}
	}()
}

// Stop cancels the run context.
func (m *Manager) Stop() {
	m.cancel(context.Canceled)
}

// Wait blocks until a termination signal arrives or the run context ends,
// then stops every registered component. The returned error joins the cause
// of a component failure with any stop hook errors.
func (m *Manager) Wait() error {
	sigCtx, stopSignals := signal.NotifyContext(m.ctx, syscall.SIGINT, syscall.SIGTERM)
	<-sigCtx.Done()
	stopSignals()

	var cause error
	if m.ctx.Err() == nil {
		m.logger.Info("shutdown signal received")
		m.cancel(context.Canceled)
	} else if c := context.Cause(m.ctx); !errors.Is(c, context.Canceled) {
		cause = c
	}

	return errors.Join(cause, m.Shutdown(context.Background()))
}

// Shutdown runs the stop hooks in reverse registration order within the
// configured timeout. Hooks run once; later calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	components := m.components
	m.components = nil
	m.mu.Unlock()

	var result error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.stop(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", c.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", c.name))
	}
	return result
}
