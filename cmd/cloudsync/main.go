// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudSync/internal/cloudsync"
	"cloudSync/internal/local"
	"cloudSync/internal/remote"
	"cloudSync/pkg/config"
	"cloudSync/pkg/health"
	"cloudSync/pkg/httpapi"
	"cloudSync/pkg/log"
	"cloudSync/pkg/metrics"
	"cloudSync/pkg/reliability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// healthProbeKey is read, never written, by the local engine probe.
const healthProbeKey = "__cloudsync_health__"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfigOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := log.InitFromConfig(&cfg.Server.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.GetLogger().Named("main")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	reliability.SetPanicHandler(func(name string, _ interface{}, _ []byte) {
		m.RecordPanicRecovered(name)
	})

	gs := reliability.NewGracefulShutdown(cfg.Server.Reliability.ShutdownTimeout)

	// a signal during startup reconciliation cancels it; gs still sees it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	localStore, err := local.Open(cfg.Server.Local)
	if err != nil {
		logger.Fatal("failed to open local engine",
			log.String("engine", cfg.Server.Local.Engine), log.Err(err))
	}
	logger.Info("local engine ready", log.String("engine", localStore.Name()))

	facility, err := remote.OpenFacility(ctx, cfg.Server.Remote)
	if err != nil {
		logger.Fatal("failed to open remote facility",
			log.Backend(cfg.Server.Remote.Backend), log.Err(err))
	}
	remoteStore := remote.New(remote.Config{
		Facility:    facility,
		Name:        cfg.Server.Remote.Backend,
		CallTimeout: cfg.Server.Remote.CallTimeout,
		Metrics:     m,
		Logger:      log.GetLogger(),
	})

	store, err := cloudsync.NewStore(cloudsync.Config{
		Local:     localStore,
		Remote:    remoteStore,
		Tracked:   cloudsync.NewTrackedKeySet(cfg.Server.Sync.TrackedKeys...),
		Metrics:   m,
		Logger:    log.GetLogger(),
		PushQPS:   cfg.Server.Sync.PushQPS,
		PushBurst: cfg.Server.Sync.PushBurst,
	})
	if err != nil {
		logger.Fatal("failed to create store", log.Err(err))
	}
	reconciler := cloudsync.NewReconciler(store)

	hs := health.NewServer(log.GetLogger())
	hs.Register(health.NewProbeChecker("local", func(ctx context.Context) error {
		_, _, err := localStore.RawGet(healthProbeKey)
		return err
	}))
	hs.Register(health.NewRemoteChecker(remoteStore))
	hs.Register(health.NewReadyChecker("reconcile", reconciler.Done(), func() string {
		if rep, ok := reconciler.LastReport(); ok {
			return rep.String()
		}
		return "disabled"
	}))
	if cfg.Server.Local.Engine == config.LocalEngineRocksDB {
		hs.Register(health.NewDiskSpaceChecker(cfg.Server.Local.RocksDB.Path, 256<<20, 90))
	}
	reliability.SafeGo("health-server", func() {
		if err := hs.Start(cfg.Server.Monitoring.HealthAddress); err != nil {
			logger.Error("health server stopped", log.Err(err))
		}
	})

	var metricsServer *metrics.MetricsServer
	if cfg.Server.Monitoring.EnablePrometheus {
		addr := fmt.Sprintf(":%d", cfg.Server.Monitoring.PrometheusPort)
		metricsServer = metrics.ServeMetrics(addr, registry, logger.Zap())
	}

	if cfg.Server.Sync.ReconcileOnStart {
		rep := reconciler.ReconcileAll(ctx)
		logger.Info("startup reconciliation finished", log.String("report", rep.String()))
	} else {
		logger.Info("startup reconciliation disabled")
		reconciler.MarkDone()
	}

	api := httpapi.NewServer(httpapi.Config{
		Store:   store,
		Address: cfg.Server.ListenAddress,
		Metrics: m,
		Logger:  log.GetLogger(),
		Limits: &reliability.RecordLimits{
			MaxKeyBytes:   cfg.Server.Reliability.MaxKeyBytes,
			MaxValueBytes: cfg.Server.Reliability.MaxValueBytes,
		},
		MaxInFlight: cfg.Server.Reliability.MaxInFlightRequests,
	})
	reliability.SafeGo("http-api", func() {
		if err := api.Start(); err != nil {
			logger.Fatal("HTTP API server failed", log.Err(err))
		}
	})

	gs.RegisterHook(reliability.PhaseStopAccepting, api.Shutdown)
	gs.RegisterHook(reliability.PhaseStopAccepting, hs.Shutdown)
	if metricsServer != nil {
		gs.RegisterHook(reliability.PhaseStopAccepting, metricsServer.Shutdown)
	}

	gs.RegisterHook(reliability.PhaseDrainMirrors, func(ctx context.Context) error {
		drainCtx, cancel := context.WithTimeout(ctx, cfg.Server.Reliability.DrainTimeout)
		defer cancel()
		defer store.Close()

		start := time.Now()
		if err := store.Drain(drainCtx); err != nil {
			logger.Warn("mirrors still in flight at shutdown",
				log.Int("in_flight", store.InFlight()), log.Err(err))
			return err
		}
		logger.Info("mirrors drained", log.Duration("took", time.Since(start)))
		return nil
	})

	gs.RegisterHook(reliability.PhaseCloseResources, func(ctx context.Context) error {
		return remoteStore.Close()
	})
	gs.RegisterHook(reliability.PhaseCloseResources, func(ctx context.Context) error {
		return localStore.Close()
	})

	logger.Info("cloudSync started",
		log.String("listen_address", cfg.Server.ListenAddress),
		log.Backend(remoteStore.Name()),
		log.Count(int64(store.Tracked().Len())))

	gs.Wait()
}
