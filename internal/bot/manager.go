package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
	"github.com/yourusername/coinpilot/internal/repository"
)

// Manager owns the set of running bot instances. One instance runs per
// configuration; starts are deduplicated and stops are idempotent.
type Manager struct {
	configRepo repository.BotConfigRepository
	deps       InstanceDeps
	logger     *logrus.Logger

	mu        sync.Mutex
	instances map[uuid.UUID]*Instance
}

// NewManager creates an empty manager.
func NewManager(configRepo repository.BotConfigRepository, deps InstanceDeps, logger *logrus.Logger) *Manager {
	return &Manager{
		configRepo: configRepo,
		deps:       deps,
		logger:     logger,
		instances:  make(map[uuid.UUID]*Instance),
	}
}

// StartBot launches a bot for the given configuration. Starting a
// configuration that is already running is a no-op success. The tenant
// must own the configuration.
func (m *Manager) StartBot(ctx context.Context, tenantID, configID uuid.UUID) error {
	m.mu.Lock()
	if existing, ok := m.instances[configID]; ok {
		if existing.State() != StateError {
			m.mu.Unlock()
			m.logger.WithField("config_id", configID).Debug("Bot already running")
			return nil
		}
		// A crashed instance may be replaced by a fresh start.
		delete(m.instances, configID)
	}
	m.mu.Unlock()

	cfg, err := m.configRepo.GetByID(ctx, configID)
	if err != nil {
		return fmt.Errorf("load bot config: %w", err)
	}
	if cfg.TenantID != tenantID {
		return fmt.Errorf("%w: config %s does not belong to tenant %s", models.ErrNotFound, configID, tenantID)
	}
	if !cfg.IsActive {
		return fmt.Errorf("config %s is not active", configID)
	}

	instance, err := NewInstance(cfg, m.deps)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	m.mu.Lock()
	if _, ok := m.instances[configID]; ok {
		// Lost the race to a concurrent start, treat as success.
		m.mu.Unlock()
		return nil
	}
	m.instances[configID] = instance
	m.mu.Unlock()

	onExit := func() {
		m.reap(configID, instance)
	}

	if err := instance.Start(ctx, onExit); err != nil {
		m.mu.Lock()
		delete(m.instances, configID)
		m.mu.Unlock()
		return err
	}

	metrics.BotsRunning.Inc()
	return nil
}

// StopBot stops the bot for the given configuration and waits for its
// loop to exit. Stopping a bot that is not running is a no-op success.
func (m *Manager) StopBot(tenantID, configID uuid.UUID) error {
	m.mu.Lock()
	instance, ok := m.instances[configID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if instance.Status().TenantID != tenantID {
		return fmt.Errorf("%w: config %s does not belong to tenant %s", models.ErrNotFound, configID, tenantID)
	}

	instance.Stop()

	// Clear a crashed instance that was left registered for visibility.
	m.mu.Lock()
	if current, ok := m.instances[configID]; ok && current == instance {
		delete(m.instances, configID)
	}
	m.mu.Unlock()
	return nil
}

// StartActive launches every active configuration. Individual start
// failures are logged and skipped so one bad config cannot block the
// rest of the fleet.
func (m *Manager) StartActive(ctx context.Context) error {
	configs, err := m.configRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active configs: %w", err)
	}

	var started int
	for _, cfg := range configs {
		if err := m.StartBot(ctx, cfg.TenantID, cfg.ID); err != nil {
			m.logger.WithFields(logrus.Fields{
				"config_id": cfg.ID,
				"error":     err,
			}).Error("Failed to start bot")
			continue
		}
		started++
	}

	m.logger.WithFields(logrus.Fields{
		"started": started,
		"total":   len(configs),
	}).Info("Active bots launched")
	return nil
}

// StopAll stops every running instance and waits for each to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, in := range m.instances {
		instances = append(instances, in)
	}
	m.mu.Unlock()

	for _, in := range instances {
		in.Stop()
	}
}

// Status returns a snapshot of every registered instance keyed by
// configuration id. A crashed instance removes itself on exit, so no
// entry here ever reports a stale running state.
func (m *Manager) Status() map[uuid.UUID]InstanceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[uuid.UUID]InstanceStatus, len(m.instances))
	for id, in := range m.instances {
		out[id] = in.Status()
	}
	return out
}

// RunningCount returns the number of registered instances.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// reap handles an exited instance. Clean exits leave the registry; a
// crashed instance stays registered in its error state so the failure
// is visible in Status until the next stop or start clears it.
func (m *Manager) reap(configID uuid.UUID, instance *Instance) {
	status := instance.Status()

	m.mu.Lock()
	if current, ok := m.instances[configID]; ok && current == instance && status.State != StateError {
		delete(m.instances, configID)
	}
	m.mu.Unlock()

	metrics.BotsRunning.Dec()

	if status.State == StateError {
		m.logger.WithFields(logrus.Fields{
			"config_id": configID,
			"error":     status.LastError,
		}).Error("Bot instance exited with error")
	}
}
