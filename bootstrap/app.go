package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/0x3a/crits/api"
	"github.com/0x3a/crits/config"
	"github.com/0x3a/crits/service"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 15 * time.Second

// App represents the indicator service with all its components
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
	Level  zap.AtomicLevel

	Storage   *StorageComponents
	Service   *service.IndicatorService
	APIServer *api.API

	serviceWg    *sync.WaitGroup
	serverErr    chan error
	shutdownOnce sync.Once
}

// NewApp loads configuration from configFile (empty searches the default
// locations) and initializes storage and the service
func NewApp(ctx context.Context, configFile string) (*App, error) {
	app := &App{
		serviceWg: &sync.WaitGroup{},
		serverErr: make(chan error, 1),
	}

	app.Logger, app.Sugar, app.Level = InitLogger(false)
	app.Sugar.Info("CRITs indicator service starting...")

	cfg, err := InitConfig(configFile, app.Level, app.Sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if err := EnsureDataDirectories(cfg, app.Sugar); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	components, err := InitStorage(ctx, cfg, app.Sugar)
	if err != nil {
		return nil, err
	}
	app.Storage = components
	app.Service = service.NewIndicatorService(components.Store, app.Sugar)

	return app, nil
}

// Start starts the API server and the config watcher
func (a *App) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.APIServer = api.NewAPI(a.Service, a.Storage.Store, a.Config, a.Sugar)
	WatchConfig(a.Level, a.Sugar)

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		a.Sugar.Infow("Starting API server", "port", a.Config.API.Port, "tls", a.Config.API.TLS)
		if err := a.APIServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server failed", "error", err)
			a.serverErr <- err
		}
	}()
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the API
// server stops on its own
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Received signal", "signal", sig.String())
	case err := <-a.serverErr:
		a.Sugar.Errorw("Shutting down after server error", "error", err)
	}
}

// Shutdown gracefully stops the API server and closes storage. Safe to call
// more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.Sugar.Info("Shutting down...")

		if a.APIServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.APIServer.Stop(ctx); err != nil {
				a.Sugar.Errorw("API server shutdown failed", "error", err)
			}
			cancel()
		}
		a.serviceWg.Wait()

		if a.Storage != nil {
			if err := a.Storage.Close(); err != nil {
				a.Sugar.Errorw("Failed to close storage", "error", err)
			}
		}

		a.Sugar.Info("Shutdown complete")
		_ = a.Logger.Sync()
	})
}
