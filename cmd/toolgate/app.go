package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/toolgate/internal/audit"
	"github.com/flemzord/toolgate/internal/authz"
	"github.com/flemzord/toolgate/internal/collab"
	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/events"
	"github.com/flemzord/toolgate/internal/gateway"
	"github.com/flemzord/toolgate/internal/grant"
	"github.com/flemzord/toolgate/internal/mcpserver"
	"github.com/flemzord/toolgate/internal/pipeline"
	"github.com/flemzord/toolgate/internal/schedule"
	"github.com/flemzord/toolgate/internal/term"
	"github.com/flemzord/toolgate/internal/tool"
)

// App wires all components together for one toolgate process.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	sink       *events.Channel
	grants     *grant.Store
	broker     *collab.Broker
	terminals  *term.Manager
	registry   *tool.Registry
	pipeline   *pipeline.Pipeline
	gateway    *gateway.Gateway
	scheduler  *schedule.Scheduler
	mcp        *mcpserver.Server
	auditStore *audit.Store
	auditFile  *os.File
}

// newApp builds the full component graph from the configuration.
func newApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
		sink:   events.NewChannel(128),
		grants: grant.NewStore(),
	}

	app.broker = collab.NewBroker(app.grants, cfg.Grants.TTL.Std(), app.sink, logger)

	termOpts := []term.Option{term.WithSink(app.sink)}
	if cfg.Terminal.Shell != "" {
		termOpts = append(termOpts, term.WithShell(cfg.Terminal.Shell))
	}
	app.terminals = term.NewManager(logger, termOpts...)

	app.registry = tool.NewRegistry()
	if err := app.registry.Register(term.NewFacade(app.terminals).Tool()); err != nil {
		return nil, err
	}
	if err := app.registry.Register(collab.NewFacade(app.broker).Tool()); err != nil {
		return nil, err
	}

	auditLogger, err := app.openAudit()
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())

	app.pipeline = pipeline.New(pipeline.Config{
		Registry: app.registry,
		Guard:    authz.NewGuard(app.grants),
		Broker:   app.broker,
		Sink:     app.sink,
		Audit:    auditLogger,
		Metrics:  pipeline.NewMetrics(promReg),
		Logger:   logger,
	})

	gwCfg := gateway.Config{
		Listen:    cfg.Gateway.Listen,
		Responder: app.pipeline,
		Pending:   app.broker,
		Terminals: app.terminals,
		Gatherer:  promReg,
		Logger:    logger,
	}
	if app.auditStore != nil {
		gwCfg.History = app.auditStore
	}
	app.gateway = gateway.New(gwCfg)

	app.scheduler = schedule.NewScheduler(logger)
	app.scheduler.Add(&schedule.GrantSweepJob{
		Grants:       app.grants,
		Logger:       logger,
		ScheduleExpr: cfg.Schedule.GrantSweep,
	})
	app.scheduler.Add(&schedule.SessionReapJob{
		Sessions:     app.terminals,
		MaxIdle:      cfg.Terminal.IdleTimeout.Std(),
		Logger:       logger,
		ScheduleExpr: cfg.Schedule.SessionReap,
	})

	app.mcp = mcpserver.New(mcpserver.Config{
		Name:       "toolgate",
		Version:    version,
		Registry:   app.registry,
		Executor:   app.pipeline,
		WorkingDir: cfg.Workspace.Root,
		Logger:     logger,
	})

	return app, nil
}

// openAudit opens the configured audit sinks and returns the logger fed by
// them. With no sinks configured, audit events are dropped.
func (a *App) openAudit() (*audit.Logger, error) {
	loggerCfg := audit.LoggerConfig{}

	if path := a.cfg.Audit.LogPath; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.auditFile = f
		loggerCfg.Writer = f
	}

	if path := a.cfg.Audit.DatabasePath; path != "" {
		store, err := audit.OpenStore(path)
		if err != nil {
			return nil, err
		}
		a.auditStore = store
		loggerCfg.Store = store
	}

	return audit.NewLogger(loggerCfg), nil
}

// Start launches the gateway and the maintenance scheduler.
func (a *App) Start() error {
	if err := a.gateway.Start(); err != nil {
		return err
	}
	if err := a.scheduler.Start(); err != nil {
		return err
	}
	a.logger.Info("toolgate started",
		"workspace", a.cfg.Workspace.Root, "gateway", a.cfg.Gateway.Listen)
	return nil
}

// ServeMCP runs the agent-facing stdio transport until the client
// disconnects.
func (a *App) ServeMCP() error {
	return a.mcp.Serve()
}

// Stop shuts everything down: scheduler first so no job races the
// teardown, then the gateway, then the terminal sessions.
func (a *App) Stop(ctx context.Context) error {
	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Error("scheduler stop failed", "error", err)
	}
	if err := a.gateway.Stop(ctx); err != nil {
		a.logger.Error("gateway stop failed", "error", err)
	}
	a.terminals.CloseAll()
	a.sink.Close()

	if a.auditStore != nil {
		if err := a.auditStore.Close(); err != nil {
			a.logger.Error("audit store close failed", "error", err)
		}
	}
	if a.auditFile != nil {
		if err := a.auditFile.Close(); err != nil {
			a.logger.Error("audit log close failed", "error", err)
		}
	}

	a.logger.Info("toolgate stopped")
	return nil
}
