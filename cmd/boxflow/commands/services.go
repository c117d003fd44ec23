package commands

import (
	"context"
	"fmt"
	"time"

	adkmodel "google.golang.org/adk/model"

	"github.com/boxflow/boxflow/internal/agent/model"
	"github.com/boxflow/boxflow/internal/agent/tools"
	"github.com/boxflow/boxflow/internal/config"
	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/integration/box"
	"github.com/boxflow/boxflow/internal/integration/salesforce"
	"github.com/boxflow/boxflow/internal/lifecycle"
	"github.com/boxflow/boxflow/internal/logging"
	"github.com/boxflow/boxflow/internal/tracing"
)

// services holds the started process components shared by the commands.
type services struct {
	cfg          *config.Config
	integrations *integration.Manager
	lifecycle    *lifecycle.Manager
	logger       *logging.Logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile:  configFile,
		DotEnvFiles: envFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// startServices starts tracing and the integrations. When reg is non-nil every
// integration registers its tools with it. A non-empty metricsAddr also
// serves /metrics there.
func startServices(ctx context.Context, cfg *config.Config, reg integration.ToolRegistry, metricsAddr string) (*services, error) {
	logger := logging.GetLogger("boxflow")

	if keys := cfg.Placeholders(); len(keys) > 0 {
		logger.Warn("Using placeholder values for %v; calls to those APIs will fail until they are configured", keys)
	}

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.TracingEndpoint,
		CAPath:         cfg.TracingCAPath,
		TLSInsecure:    cfg.TracingTLSInsecure,
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	mgrCfg := integration.ManagerConfig{Instances: cfg.Integrations()}
	var mgr *integration.Manager
	if reg != nil {
		mgr, err = integration.NewManagerWithToolRegistry(mgrCfg, reg)
	} else {
		mgr, err = integration.NewManager(mgrCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create integration manager: %w", err)
	}

	lc := lifecycle.NewManager()
	if err := lc.Register(tp); err != nil {
		return nil, err
	}
	if err := lc.Register(mgr, tp); err != nil {
		return nil, err
	}
	if metricsAddr != "" {
		if err := lc.Register(newMetricsServer(metricsAddr, nil)); err != nil {
			return nil, err
		}
	}
	if err := lc.Start(ctx); err != nil {
		return nil, err
	}

	return &services{
		cfg:          cfg,
		integrations: mgr,
		lifecycle:    lc,
		logger:       logger,
	}, nil
}

// toolDeps exposes the started Box and Salesforce clients to the agent tools.
func (s *services) toolDeps() (tools.Deps, error) {
	var deps tools.Deps

	inst, ok := s.integrations.Registry().Get("box")
	if !ok {
		return deps, fmt.Errorf("box integration is not running")
	}
	b, ok := inst.(*box.Integration)
	if !ok || b.Client() == nil {
		return deps, fmt.Errorf("box integration did not start")
	}
	deps.Box = b.Client()
	deps.HubID = b.HubID()
	deps.GTMHubID = b.GTMHubID()

	inst, ok = s.integrations.Registry().Get("salesforce")
	if !ok {
		return deps, fmt.Errorf("salesforce integration is not running")
	}
	sf, ok := inst.(*salesforce.Integration)
	if !ok || sf.Client() == nil {
		return deps, fmt.Errorf("salesforce integration did not start")
	}
	deps.Salesforce = sf.Client()
	return deps, nil
}

func (s *services) newLLM(ctx context.Context, override string) (adkmodel.LLM, error) {
	name := s.cfg.Model
	if override != "" {
		name = override
	}
	llm, err := model.New(ctx, model.Options{
		Name:             name,
		GoogleAPIKey:     s.cfg.GoogleAPIKey,
		AnthropicAPIKey:  s.cfg.AnthropicAPIKey,
		AnthropicBaseURL: s.cfg.AnthropicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Using model %s", llm.Name())
	return llm, nil
}

func (s *services) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.lifecycle.Stop(ctx)
}
