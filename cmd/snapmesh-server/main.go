// Package main provides the entry point for snapmesh-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/coordinator"
	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/snapmesh-go/internal/infra/confloader"
	"github.com/yndnr/snapmesh-go/internal/infra/shutdown"
	"github.com/yndnr/snapmesh-go/internal/mesh"
	"github.com/yndnr/snapmesh-go/internal/node"
	"github.com/yndnr/snapmesh-go/internal/server/config"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver"
	"github.com/yndnr/snapmesh-go/internal/sim"
	"github.com/yndnr/snapmesh-go/internal/storage/archive"
	"github.com/yndnr/snapmesh-go/internal/storage/snapshotstore"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("snapmesh-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting snapmesh-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile)

	metrics := metric.New()

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Topology and buffers are fixed at startup; a config edit needs a
	// restart, so just surface it.
	if *configFile != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			return fmt.Errorf("init config watcher: %w", err)
		}
		watcher.OnChange(func(path string) {
			log.Warn("configuration file changed, restart to apply", "path", path)
		})
		if err := watcher.Watch(*configFile); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watcher.StartAsync()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}

	// Snapshot sinks.
	store, err := snapshotstore.New(snapshotstore.Config{
		Dir:            cfg.Snapshot.Dir,
		RetentionCount: cfg.Snapshot.RetentionCount,
		RetentionDays:  cfg.Snapshot.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	var arch *archive.Archive
	if cfg.Snapshot.ArchivePath != "" {
		arch, err = archive.Open(cfg.Snapshot.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("closing archive")
			return arch.Close()
		})
	}

	// Mesh transport and protocol nodes.
	spec := &cfg.Mesh.Topology
	transport, err := mesh.Build(spec,
		mesh.WithChannelBuffer(cfg.Mesh.ChannelBuffer),
		mesh.WithInboxBuffer(cfg.Mesh.InboxBuffer),
		mesh.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build mesh: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing mesh transport")
		transport.Close()
		return nil
	})

	coordOpts := []coordinator.Option{
		coordinator.WithTimeout(cfg.Snapshot.SessionTimeout),
		coordinator.WithSink(store),
		coordinator.WithLogger(log),
		coordinator.WithMetrics(metrics),
	}
	if arch != nil {
		coordOpts = append(coordOpts, coordinator.WithSink(arch))
	}
	coord := coordinator.New(spec.ProcessIDs(), coordOpts...)

	nodes := make(map[domain.ProcessID]*node.Node, len(spec.ProcessIDs()))
	accounts := make(map[domain.ProcessID]*sim.Account, len(spec.ProcessIDs()))
	for _, id := range spec.ProcessIDs() {
		proc, _ := spec.Process(id)
		inbox, _ := transport.Inbox(id)

		account := sim.NewAccount(proc.InitialBalance)
		n := node.New(id, account, coord, transport, inbox,
			transport.Incoming(id), transport.Outgoing(id),
			node.WithLogger(log),
			node.WithMetrics(metrics))
		n.Start()

		nodes[id] = n
		accounts[id] = account
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping protocol nodes")
		for _, n := range nodes {
			n.Stop()
		}
		return nil
	})

	log.Info("mesh started",
		"processes", len(spec.ProcessIDs()),
		"channels", len(spec.ChannelIDs()),
		"total_balance", spec.TotalBalance())

	// Background token workload.
	if cfg.Sim.Enabled {
		simulator := sim.New(sim.Config{
			Rate:        cfg.Sim.Rate,
			Burst:       cfg.Sim.Burst,
			MaxTransfer: cfg.Sim.MaxTransfer,
			Seed:        cfg.Sim.Seed,
		}, log)
		for _, id := range spec.ProcessIDs() {
			simulator.Register(nodes[id], accounts[id], transport.Outgoing(id))
		}
		simulator.Start(context.Background())
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("stopping workload simulator")
			simulator.Stop()
			return nil
		})

		log.Info("workload simulator started",
			"rate", cfg.Sim.Rate,
			"max_transfer", cfg.Sim.MaxTransfer)
	}

	// Admin API.
	svc := service.NewSnapshotService(coord, nodes,
		service.WithLogger(log),
		service.WithMetrics(metrics))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Service:         svc,
		Archive:         arch,
		Metrics:         metrics,
		Logger:          log,
		RateLimit:       100,
		EnableAccessLog: true,
	})

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}
