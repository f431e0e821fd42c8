package app

import (
	"context"
	"fmt"
	"time"

	"evergreen/internal/config"
	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/selection"
	"evergreen/internal/service"
	"evergreen/internal/store"
	apihttp "evergreen/internal/transport/http/api"
	"evergreen/internal/transport/ws"
)

type AppBuilder struct {
	cfg *config.Config

	personasFn     func(string) (persona.Set, error)
	modelsFn       func(config.AIConfig) (*provider.Registry, error)
	storeOpenerFn  func(config.StoreConfig) store.Opener
	marketSourceFn func(config.SelectionConfig) selection.Source
	sinksFn        func(context.Context, *config.Config) (sinkSetup, error)
	apiServerFn    func(config.AppConfig, apihttp.ServerConfig) (*apihttp.Server, error)

	withoutServer bool
}

type AppBuilderOption func(*AppBuilder)

// WithoutServer builds the pipeline only; used by the one-shot commands.
func WithoutServer() AppBuilderOption {
	return func(b *AppBuilder) { b.withoutServer = true }
}

func WithModels(reg *provider.Registry) AppBuilderOption {
	return func(b *AppBuilder) {
		b.modelsFn = func(config.AIConfig) (*provider.Registry, error) { return reg, nil }
	}
}

func WithStoreOpener(open store.Opener) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeOpenerFn = func(config.StoreConfig) store.Opener { return open }
	}
}

func WithMarketSource(src selection.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketSourceFn = func(config.SelectionConfig) selection.Source { return src }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		personasFn:     persona.Load,
		modelsFn:       buildModelRegistry,
		storeOpenerFn:  storeOpener,
		marketSourceFn: buildMarketSource,
		sinksFn:        buildSinks,
		apiServerFn:    buildAPIServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	personas, err := b.personasFn(cfg.Agents.InstructionsPath)
	if err != nil {
		return nil, fmt.Errorf("加载 agent 指令失败: %w", err)
	}
	if cfg.Agents.InstructionsPath != "" {
		logger.Infof("✓ agent 指令覆盖已加载: %s", cfg.Agents.InstructionsPath)
	}

	registry, err := b.modelsFn(cfg.AI)
	if err != nil {
		return nil, err
	}
	models, err := bindModels(registry, cfg.AI, personas)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 已启用 %d 个 AI 模型: %v", len(registry.IDs()), registry.IDs())

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	generator := decision.NewGenerator(decision.GeneratorConfig{
		Default:    models.agent,
		PerPersona: models.perPersona,
		Timeout:    timeout,
	})
	runner := decision.NewRunner(generator, personas)
	debater := decision.NewDebater(models.debate, timeout)

	source := b.marketSourceFn(cfg.Selection)
	pipeline := selection.NewPipeline(
		source,
		selection.NewSelector(models.selection, cfg.Selection.CandidateLimit),
		selection.NewEnricher(models.selection),
		selection.PipelineConfig{TopN: cfg.Selection.TopN, LooseLimit: cfg.Selection.LooseLimit},
	)

	app := &App{cfg: cfg, personas: personas}

	records := b.buildStore(cfg.Store)
	app.closers = append(app.closers, namedCloser{name: "store", close: records.Close})

	var hub *ws.Hub
	if !b.withoutServer {
		hub = ws.NewHub()
		app.hub = hub
	}
	sinks, err := b.sinksFn(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, sinks.closers...)
	if hub != nil {
		sinks.list = append(sinks.list, service.BroadcastSink(hub))
	}
	fanOut := service.NewFanOut(0, sinks.list...)
	if names := fanOut.Sinks(); len(names) > 0 {
		logger.Infof("✓ 决策发布通道: %v", names)
	}

	app.service = service.New(service.Options{
		Runner:         runner,
		Debate:         debater,
		Recorder:       records,
		Publisher:      fanOut,
		Selector:       pipeline,
		PersistTimeout: time.Duration(cfg.Store.TimeoutSeconds) * time.Second,
	})

	if !b.withoutServer {
		serverCfg := apihttp.ServerConfig{
			Decider:  app.service,
			Records:  records,
			Personas: personas,
			Feed:     hub,
		}
		if sinks.cache != nil {
			serverCfg.Cache = sinks.cache
		}
		server, err := b.apiServerFn(cfg.App, serverCfg)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.api = server
	}

	app.Summary = &StartupSummary{
		Env:       cfg.App.Env,
		HTTPAddr:  serverAddr(app.api),
		Personas:  personaSummaries(personas, cfg.AI),
		Models:    registry.IDs(),
		Debate:    cfg.AI.DebateModel,
		Selection: cfg.AI.SelectionModel,
		Store:     storeSummary(cfg.Store),
		Sinks:     fanOut.Sinks(),
	}
	return app, nil
}

// buildStore returns the process-wide store. It connects on first use so a
// database outage never blocks startup.
func (b *AppBuilder) buildStore(cfg config.StoreConfig) store.DecisionStore {
	open := b.storeOpenerFn(cfg)
	if open == nil {
		logger.Infof("✓ 决策持久化已关闭 (store.driver=%s)", cfg.Driver)
		return store.Nop{}
	}
	return store.NewLazy(open)
}

func buildAPIServer(cfg config.AppConfig, serverCfg apihttp.ServerConfig) (*apihttp.Server, error) {
	serverCfg.Addr = cfg.HTTPAddr
	server, err := apihttp.NewServer(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 接口失败: %w", err)
	}
	logger.Infof("✓ HTTP 接口监听 %s", server.Addr())
	return server, nil
}

func buildMarketSource(cfg config.SelectionConfig) selection.Source {
	return selection.NewPolymarketClient(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
}

func serverAddr(s *apihttp.Server) string {
	if s == nil {
		return ""
	}
	return s.Addr()
}
