// Package main is the entry point of the airport twin API server.
//
// It loads the configuration, builds the snapshot store, the simulation engine
// and its wall-clock driver, wires optional AWS integrations (CloudWatch
// metrics, SQS alert queue) and serves the HTTP API until SIGINT or SIGTERM.
//
// With DATA_SOURCE=broker the snapshot is read from an NGSI-v2 context broker
// on REFRESH_INTERVAL and the simulation clock never advances the state.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"airtwin/internal/airport"
	"airtwin/internal/api/handlers"
	"airtwin/internal/broker"
	"airtwin/internal/config"
	"airtwin/internal/core"
	"airtwin/internal/dashboard"
	"airtwin/internal/logging"
	"airtwin/internal/queue"
	"airtwin/internal/sim"
	"airtwin/internal/store"
	"airtwin/internal/telemetry"
	"airtwin/internal/types"
)

const (
	historyCacheTTL = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()
	logger.Info("airport twin starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"source", cfg.Source,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var clients *awsClients
	if cfg.UsesAWS() {
		if clients, err = newAWSClients(ctx, cfg); err != nil {
			return err
		}
	}

	a, err := build(cfg, logger, clients)
	if err != nil {
		return err
	}
	defer a.close()

	a.start(ctx, cfg)
	return serve(ctx, a.server, cfg, logger)
}

type awsClients struct {
	cloudwatch telemetry.CloudWatchClient
	sqs        queue.SQSSender
}

// newAWSClients loads the default credential chain. AWS_ENDPOINT_URL points
// both clients at LocalStack.
func newAWSClients(ctx context.Context, cfg *config.Config) (*awsClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	endpoint := cfg.AWS.EndpointURL
	return &awsClients{
		cloudwatch: cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		sqs: sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
	}, nil
}

// app is the wired process.
type app struct {
	server  *core.Server
	service *dashboard.Service
	engine  *sim.Engine
	clock   *sim.Clock
	logger  *slog.Logger
}

// build wires every component. clients may be nil, in which case metrics and
// alert publication are disabled.
func build(cfg *config.Config, logger *slog.Logger, clients *awsClients) (*app, error) {
	layout := airport.Default()
	if cfg.Simulation.AirportFile != "" {
		var err error
		if layout, err = airport.Load(cfg.Simulation.AirportFile); err != nil {
			return nil, fmt.Errorf("loading airport layout: %w", err)
		}
	}

	var (
		engine  *sim.Engine
		source  store.Source
		history dashboard.HistoryFetcher
		probes  []core.HealthProbe
	)
	switch cfg.Source {
	case types.SourceBroker:
		client, err := broker.NewClient(broker.ClientConfig{
			BrokerURL:   cfg.Broker.URL,
			HistoryURL:  cfg.Broker.HistoryURL,
			Service:     cfg.Broker.Service,
			ServicePath: cfg.Broker.ServicePath,
			Timeout:     cfg.Broker.Timeout,
			UserAgent:   "airtwin/" + cfg.Build.Version,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating broker client: %w", err)
		}
		source = broker.NewSource(client, types.RealClock{}, logger)
		if cfg.Broker.HistoryURL != "" {
			history = broker.NewCachedHistory(client, cfg.Broker.HistoryCacheSize, historyCacheTTL)
		}
		probes = append(probes, core.NewProbe("broker", client.Ping))
	default:
		source = store.SourceFunc(func(ctx context.Context) (*types.Snapshot, error) {
			return engine.Fetch(ctx)
		})
	}

	st, err := store.New(store.Config{
		Source:         source,
		RefreshTimeout: cfg.Broker.Timeout,
		Clock:          types.RealClock{},
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	engine, err = sim.NewEngine(sim.Config{
		Layout:          layout,
		Store:           st,
		Seed:            cfg.Simulation.Seed,
		LandedRetention: cfg.Simulation.LandedRetention,
		LogCapacity:     cfg.Simulation.LogCapacity,
		Clock:           types.RealClock{},
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	var (
		metrics   dashboard.Metrics
		collector core.MetricsCollector
		publisher dashboard.AlertPublisher
	)
	if clients != nil && cfg.Observability.MetricsEnabled {
		cw := telemetry.NewCloudWatchMetrics(clients.cloudwatch, cfg.Observability.MetricNamespace, layout.Code, logging.AsLogger(logger))
		metrics, collector = cw, cw
	}
	if clients != nil && cfg.AWS.AlertQueueURL != "" {
		publisher = queue.NewAlertPublisher(clients.sqs, cfg.AWS.AlertQueueURL, layout.Code, types.RealClock{}, logger)
	}

	svc, err := dashboard.New(dashboard.Config{
		Engine:    engine,
		Store:     st,
		History:   history,
		Publisher: publisher,
		Metrics:   metrics,
		Source:    cfg.Source,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dashboard service: %w", err)
	}

	clockCfg := sim.ClockConfig{
		Engine: svc,
		Base:   cfg.Simulation.TickInterval,
		OnTick: svc.RecordTick,
		Logger: logger,
	}
	if cfg.Source == types.SourceBroker {
		clockCfg.Refresh = func(ctx context.Context) error {
			_, err := svc.Refresh(ctx)
			return err
		}
		clockCfg.RefreshEvery = cfg.Simulation.RefreshInterval
	}
	clock, err := sim.NewClock(clockCfg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("creating clock: %w", err)
	}
	svc.SetClock(clock)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if collector != nil {
		srv.Metrics = collector
	}
	srv.HealthProbes = append([]core.HealthProbe{
		core.NewProbe("snapshot", func(context.Context) error {
			if st.Current() == nil {
				return errors.New("no snapshot loaded")
			}
			return nil
		}),
	}, probes...)

	airportHandler := handlers.NewAirportHandler(svc, logger)
	simulationHandler := handlers.NewSimulationHandler(svc, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		airportHandler.RegisterRoutes,
		simulationHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return &app{
		server:  srv,
		service: svc,
		engine:  engine,
		clock:   clock,
		logger:  logger,
	}, nil
}

// start loads the first snapshot and starts the clock. A failed first refresh
// is logged; the scheduled refresh or an operator retries it.
func (a *app) start(ctx context.Context, cfg *config.Config) {
	if _, err := a.service.Refresh(ctx); err != nil {
		a.logger.Warn("initial refresh failed", "error", err)
	}
	if cfg.Simulation.Autostart && cfg.Source == types.SourceSimulator {
		a.service.ToggleSimulation()
	}
	a.clock.Start(ctx, a.service.Simulation().Speed)
}

func (a *app) close() {
	a.clock.Stop()
	a.service.Close()
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
