package app

import (
	"context"
	"errors"
	"fmt"

	"evergreen/internal/config"
	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/service"
	apihttp "evergreen/internal/transport/http/api"
	"evergreen/internal/transport/ws"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→对外提供决策服务。
type App struct {
	cfg      *config.Config
	personas persona.Set
	service  *service.Service
	api      *apihttp.Server
	hub      *ws.Hub
	closers  []namedCloser
	Summary  *StartupSummary
}

type namedCloser struct {
	name  string
	close func() error
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	if len(opts) > 0 {
		return NewAppBuilder(cfg, opts...).Build(ctx)
	}
	return buildAppWithWire(ctx, cfg)
}

// Run serves the HTTP API and the live feed until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.api == nil {
		return fmt.Errorf("api server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.hub != nil {
		group.Go(func() error {
			a.hub.Run(ctx)
			return nil
		})
	}
	group.Go(func() error {
		if err := a.api.Start(ctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Service exposes the decision service for the one-shot commands.
func (a *App) Service() *service.Service {
	if a == nil {
		return nil
	}
	return a.service
}

func (a *App) Personas() persona.Set {
	if a == nil {
		return persona.Default()
	}
	return a.personas
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			logger.Warnf("close %s: %v", c.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
