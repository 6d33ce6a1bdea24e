package relationaldb

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns an archive database: it opens it once, retries transient
// failures and runs a periodic health check.
type Manager struct {
	db     Database
	config *Config
	logger *zap.Logger

	healthCheckInterval time.Duration
	healthCancel        context.CancelFunc
	healthWg            sync.WaitGroup

	mu        sync.RWMutex
	connected bool
	lastError error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHealthCheckInterval sets the health check period. Zero disables it.
func WithHealthCheckInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		m.healthCheckInterval = interval
	}
}

// NewManager wraps db.
func NewManager(db Database, config *Config, options ...ManagerOption) *Manager {
	m := &Manager{
		db:                  db,
		config:              config,
		logger:              zap.NewNop(),
		healthCheckInterval: time.Minute,
	}
	for _, option := range options {
		option(m)
	}
	m.logger = m.logger.Named("archive")
	return m
}

// Open opens the database and starts the health checker.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil
	}
	err := m.ExecuteWithRetry(ctx, func() error { return m.db.Open(ctx) })
	if err != nil {
		m.lastError = err
		m.logger.Error("failed to open archive", zap.String("driver", m.config.Driver), zap.Error(err))
		return err
	}
	m.connected = true
	m.lastError = nil
	m.startHealthChecker()

	m.logger.Info("archive opened", zap.String("driver", m.config.Driver), zap.String("database", m.config.Database))
	return nil
}

// Close stops the health checker and closes the database.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	cancel := m.healthCancel
	m.healthCancel = nil
	m.mu.Unlock()

	// The checker takes m.mu, so it is stopped without holding it
	if cancel != nil {
		cancel()
		m.healthWg.Wait()
	}
	if err := m.db.Close(ctx); err != nil {
		m.logger.Error("failed to close archive", zap.Error(err))
		return err
	}
	m.logger.Info("archive closed")
	return nil
}

// Ping checks the connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}

// IsConnected reports whether Open succeeded and Close was not called.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// LastError returns the last open or health check failure.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// ExecuteWithRetry runs operation, repeating it with a linear backoff while
// it fails with a retryable error.
func (m *Manager) ExecuteWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * m.config.RetryDelay
			m.logger.Debug("retrying archive operation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return lastErr
}

// Record writes b, retrying transient failures.
func (m *Manager) Record(ctx context.Context, b *Batch) error {
	return m.ExecuteWithRetry(ctx, func() error { return m.db.Record(ctx, b) })
}

// History returns the settlements of a token, newest first.
func (m *Manager) History(ctx context.Context, contract string, tokenID uint64, limit int) ([]Settlement, error) {
	return m.db.History(ctx, contract, tokenID, limit)
}

// Recent returns the latest settlements.
func (m *Manager) Recent(ctx context.Context, limit int) ([]Settlement, error) {
	return m.db.Recent(ctx, limit)
}

// Events returns the events of a transaction.
func (m *Manager) Events(ctx context.Context, txHash string) ([]EventRecord, error) {
	return m.db.Events(ctx, txHash)
}

// LastHeight returns the highest archived height.
func (m *Manager) LastHeight(ctx context.Context) (uint64, error) {
	return m.db.LastHeight(ctx)
}

func (m *Manager) startHealthChecker() {
	if m.healthCheckInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.healthCancel = cancel
	m.healthWg.Add(1)
	go func() {
		defer m.healthWg.Done()
		ticker := time.NewTicker(m.healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := m.db.Ping(ctx)
				m.mu.Lock()
				m.lastError = err
				m.mu.Unlock()
				if err != nil {
					m.logger.Warn("archive health check failed", zap.Error(err))
				}
			}
		}
	}()
}
