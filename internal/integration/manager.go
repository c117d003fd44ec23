package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boxflow/boxflow/internal/config"
	"github.com/boxflow/boxflow/internal/logging"
	"github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"
)

// ManagerConfig holds configuration for the integration Manager.
type ManagerConfig struct {
	// Instances to create, usually config.Config.Integrations()
	Instances []config.IntegrationConfig

	// HealthCheckInterval is how often instance health is logged. Default: 30s
	HealthCheckInterval time.Duration

	// ShutdownTimeout bounds each instance's Stop. Default: 10s
	ShutdownTimeout time.Duration

	// MinIntegrationVersion rejects instances older than this semantic version
	MinIntegrationVersion string

	// Factories defaults to the process-wide registry
	Factories *FactoryRegistry
}

// Manager creates, starts, health-checks and stops the integration instances.
type Manager struct {
	config       ManagerConfig
	factories    *FactoryRegistry
	registry     *Registry
	toolRegistry ToolRegistry
	minVersion   *version.Version
	healthCancel context.CancelFunc
	healthDone   chan struct{}
	lastHealth   map[string]HealthStatus
	mu           sync.RWMutex
	logger       *logging.Logger
}

// NewManager validates cfg and returns a manager that has not started anything yet.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := config.ValidateIntegrations(cfg.Instances); err != nil {
		return nil, err
	}

	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	m := &Manager{
		config:     cfg,
		factories:  cfg.Factories,
		registry:   NewRegistry(),
		lastHealth: make(map[string]HealthStatus),
		logger:     logging.GetLogger("integration.manager"),
	}
	if m.factories == nil {
		m.factories = defaultRegistry
	}

	if cfg.MinIntegrationVersion != "" {
		minVer, err := version.NewVersion(cfg.MinIntegrationVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid MinIntegrationVersion %q: %w", cfg.MinIntegrationVersion, err)
		}
		m.minVersion = minVer
	}

	return m, nil
}

// NewManagerWithToolRegistry also registers every instance's tools with reg on Start.
func NewManagerWithToolRegistry(cfg ManagerConfig, reg ToolRegistry) (*Manager, error) {
	m, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	m.toolRegistry = reg
	return m, nil
}

// Name returns the component name for lifecycle management.
func (m *Manager) Name() string {
	return "integration-manager"
}

// Registry returns the running instances.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start creates every enabled instance, validates its version, then starts
// all of them concurrently. An instance whose Start fails stays registered
// and is reported as degraded; only a version mismatch or an unknown type
// fails the manager.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info("Starting %d integration instance(s)", len(m.config.Instances))

	var created []Integration
	for _, ic := range m.config.Instances {
		if !ic.Enabled {
			m.logger.Debug("Skipping disabled instance: %s", ic.Name)
			continue
		}

		factory, ok := m.factories.Get(ic.Type)
		if !ok {
			return fmt.Errorf("no factory registered for integration type %q (instance: %s)", ic.Type, ic.Name)
		}

		instance, err := factory(ic.Name, ic.Settings)
		if err != nil {
			return fmt.Errorf("failed to create instance %s: %w", ic.Name, err)
		}

		if err := m.validateInstanceVersion(instance); err != nil {
			return err
		}

		if err := m.registry.Register(ic.Name, instance); err != nil {
			return err
		}
		created = append(created, instance)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, instance := range created {
		g.Go(func() error {
			meta := instance.Metadata()
			if err := instance.Start(gctx); err != nil {
				m.logger.Error("Failed to start instance %s: %v (marking as degraded)", meta.Name, err)
				return nil
			}
			m.logger.Info("Started instance: %s (type: %s, version: %s, health: %s)",
				meta.Name, meta.Type, meta.Version, instance.Health(gctx))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("integration start interrupted: %w", err)
	}

	if m.toolRegistry != nil {
		for _, instance := range created {
			if err := instance.RegisterTools(m.toolRegistry); err != nil {
				return fmt.Errorf("failed to register tools for %s: %w", instance.Metadata().Name, err)
			}
		}
	}

	healthCtx, cancel := context.WithCancel(context.Background())
	m.healthCancel = cancel
	m.healthDone = make(chan struct{})
	go m.runHealthChecks(healthCtx)

	return nil
}

// Stop stops the health loop and every instance.
func (m *Manager) Stop(ctx context.Context) error {
	if m.healthCancel != nil {
		m.healthCancel()
		<-m.healthDone
	}

	for _, name := range m.registry.List() {
		instance, ok := m.registry.Get(name)
		if !ok {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
		if err := instance.Stop(stopCtx); err != nil {
			m.logger.Warn("Error stopping instance %s: %v", name, err)
		}
		cancel()
	}

	m.logger.Info("Integration manager stopped")
	return nil
}

// Health returns the current status of every instance.
func (m *Manager) Health(ctx context.Context) map[string]HealthStatus {
	out := make(map[string]HealthStatus)
	for _, name := range m.registry.List() {
		if instance, ok := m.registry.Get(name); ok {
			out[name] = instance.Health(ctx)
		}
	}
	return out
}

func (m *Manager) validateInstanceVersion(instance Integration) error {
	if m.minVersion == nil {
		return nil
	}

	meta := instance.Metadata()
	instanceVer, err := version.NewVersion(meta.Version)
	if err != nil {
		return fmt.Errorf("instance %s has invalid version %q: %w", meta.Name, meta.Version, err)
	}

	if instanceVer.LessThan(m.minVersion) {
		return fmt.Errorf("instance %s version %s is below minimum required version %s",
			meta.Name, meta.Version, m.minVersion.String())
	}
	return nil
}

func (m *Manager) runHealthChecks(ctx context.Context) {
	defer close(m.healthDone)

	m.checkHealth(ctx)

	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkHealth(ctx)
		}
	}
}

// checkHealth logs status transitions.
func (m *Manager) checkHealth(ctx context.Context) {
	for name, status := range m.Health(ctx) {
		m.mu.Lock()
		prev, seen := m.lastHealth[name]
		m.lastHealth[name] = status
		m.mu.Unlock()

		if seen && prev == status {
			continue
		}
		if status == Healthy {
			m.logger.Info("Instance %s is %s", name, status)
		} else {
			m.logger.Warn("Instance %s is %s", name, status)
		}
	}
}
