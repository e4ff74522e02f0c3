package serverstatus

import (
	"context"
	"net/http"
	"os"
	"time"

	"aireone.xyz/serverstatus/internal/metrics"
	"aireone.xyz/serverstatus/internal/probes"
	"aireone.xyz/serverstatus/internal/registry"
	"aireone.xyz/serverstatus/internal/statusapi"
	"aireone.xyz/serverstatus/internal/watcher"
	"aireone.xyz/serverstatus/internal/yamlconfig"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	ConfigFile          string
	WatchConfigFile     bool
	ListenAddress       string
	PrivilegedPing      bool
	MaxConcurrentProbes int
}

type App struct {
	options    Options
	registry   *registry.Registry
	cache      *statusapi.Cache
	httpServer *http.Server
	watcher    *watcher.Watcher

	logger *zap.Logger
}

func NewApp(options Options, logger *zap.Logger, opts ...registry.Option) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(reg)
	if err != nil {
		return nil, errors.Wrap(err, "error registering metrics")
	}

	proberOpts := []probes.Option{probes.WithMaxConcurrent(options.MaxConcurrentProbes)}
	if options.PrivilegedPing {
		proberOpts = append(proberOpts, probes.WithPrivilegedPing(true))
	}
	prober := probes.New(logger, proberOpts...)

	cache := statusapi.NewCache()

	opts = append([]registry.Option{registry.WithProber(prober), registry.WithMetrics(m)}, opts...)
	r, err := registry.New(cache, logger, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error creating registry")
	}

	api := statusapi.NewServer(logger, r, cache, reg)
	server := &http.Server{
		Addr:         options.ListenAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
		Handler:      api.Router(),
	}

	var w *watcher.Watcher
	if options.WatchConfigFile {
		w, err = watcher.NewWatcher(options.ConfigFile, logger)
		if err != nil {
			return nil, multierr.Append(errors.Wrap(err, "error creating watcher"), r.Shutdown())
		}
	}

	return &App{
		options:    options,
		registry:   r,
		cache:      cache,
		httpServer: server,
		watcher:    w,
		logger:     logger,
	}, nil
}

// loadConfig applies the configuration file to the registry. Targets that
// fail validation are logged and skipped, the others are monitored.
func (a *App) loadConfig() error {
	file, err := os.Open(a.options.ConfigFile)
	if err != nil {
		return errors.Wrap(err, "error opening config file")
	}
	defer file.Close()

	config, err := yamlconfig.NewYamlConfig(file)
	if err != nil {
		return errors.Wrap(err, "error creating yaml config")
	}

	defaults := config.Defaults()
	if err := defaults.Validate(); err != nil {
		return errors.Wrap(err, "invalid platform defaults")
	}

	if err := a.registry.Reconcile(defaults, config.Targets()); err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			a.logger.Error("Invalid target skipped", zap.Error(e))
		}
		if len(a.registry.Targets()) == 0 && len(config.Servers) > 0 {
			return errors.Wrap(err, "no valid target in configuration")
		}
	}

	a.logger.Info("Configuration loaded",
		zap.String("file", a.options.ConfigFile),
		zap.Int("targets", len(a.registry.Targets())),
	)

	return nil
}

func (a *App) Start(ctx context.Context) error {
	errs, derivedCtx := errgroup.WithContext(ctx)

	// Serve the API and Prometheus metrics
	errs.Go(func() error {
		go func() {
			<-derivedCtx.Done()
			if err := shutdownHTTPServer(context.Background(), a.httpServer); err != nil {
				a.logger.Error("Error shutting down http server", zap.Error(err))
			}
		}()

		a.logger.Info("Listening", zap.String("address", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "error starting http server")
		}
		return nil
	})

	// Load YAML configuration
	if err := a.loadConfig(); err != nil {
		return errors.Wrap(err, "error setting up monitors from file")
	}

	if a.watcher != nil {
		errs.Go(func() error {
			for {
				select {
				case <-derivedCtx.Done():
					return nil
				case err := <-a.watcher.Errors:
					return errors.Wrap(err, "error received from watcher")
				case <-a.watcher.Events:
					a.logger.Info("Configuration file changed, reloading monitors...")

					if err := a.loadConfig(); err != nil {
						a.logger.Error("Error reloading configuration, keeping current monitors", zap.Error(err))
					}
				}
			}
		})
	}

	return errs.Wait()
}

func shutdownHTTPServer(ctx context.Context, server *http.Server) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "error shutting down http server")
	}

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var err error

	if e := a.registry.Shutdown(); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "error shutting down registry"))
	}

	if e := shutdownHTTPServer(ctx, a.httpServer); e != nil {
		err = multierr.Append(err, e)
	}

	if a.watcher != nil {
		if e := a.watcher.Shutdown(); e != nil {
			err = multierr.Append(err, errors.Wrap(e, "error shutting down watcher"))
		}
	}

	return err
}
