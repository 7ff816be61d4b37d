// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/waypoint/internal/api"
	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/auth"
	"github.com/tomtom215/waypoint/internal/authz"
	"github.com/tomtom215/waypoint/internal/cache"
	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/location"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/presence"
	"github.com/tomtom215/waypoint/internal/supervisor"
	"github.com/tomtom215/waypoint/internal/supervisor/services"
	"github.com/tomtom215/waypoint/internal/tracking"
	"github.com/tomtom215/waypoint/internal/wal"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("driver", cfg.Database.Driver).
		Str("db_path", cfg.Database.Path).
		Str("time_zone", cfg.Tracking.TimeZone).
		Dur("refresh_threshold", cfg.Tracking.RefreshThreshold).
		Dur("duplicate_threshold", cfg.Tracking.DuplicateThreshold).
		Bool("auto_open_session", cfg.Tracking.AutoOpenSession).
		Msg("Starting Waypoint")

	for _, warning := range cfg.Warnings() {
		logging.Warn().Msg(warning)
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	st, err := openStore(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.close()

	retryLog, err := initWAL(&cfg.WAL)
	if err != nil {
		st.close()
		logging.Fatal().Err(err).Msg("Failed to initialize WAL")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{
		ModelPath:      cfg.Security.CasbinModelPath,
		PolicyPath:     cfg.Security.CasbinPolicyPath,
		ReloadInterval: cfg.Security.CasbinReloadInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	defer enforcer.Close()

	machineCfg := attendance.Config{Location: cfg.Tracking.Location()}
	coordDeps := tracking.Deps{
		Verifier: jwtManager,
		Names:    cache.NewNameCache(st.names, cfg.Tracking.NameCacheTTL),
		Store:    st.guarded,
	}
	handlerDeps := api.Deps{
		Config:  cfg,
		Store:   st.guarded,
		Breaker: st.guarded,
	}
	if retryLog != nil {
		machineCfg.Spool = retryLog
		coordDeps.Spool = retryLog
		handlerDeps.Retry = retryLog
	}

	machine := attendance.NewMachine(st.guarded, machineCfg)
	registry := presence.NewRegistry[ws.Peer]()
	hub := ws.NewHub(registry)

	coordDeps.Sessions = machine
	coordDeps.Registry = registry
	coordDeps.Broadcaster = hub
	coord := tracking.New(tracking.Config{
		Policy: location.Policy{
			Refresh:   cfg.Tracking.RefreshThreshold,
			Duplicate: cfg.Tracking.DuplicateThreshold,
		},
		FailedGeocodeAddresses: cfg.Tracking.FailedGeocodeAddresses,
		AutoOpenSession:        cfg.Tracking.AutoOpenSession,
		ReportRate:             cfg.Tracking.ReportRate,
		ReportBurst:            cfg.Tracking.ReportBurst,
		ReconcileTimeout:       cfg.Tracking.ReconcileTimeout,
	}, coordDeps)

	handlerDeps.Coordinator = coord
	handlerDeps.Sessions = machine
	handlerDeps.Hub = hub
	handler := api.NewHandler(handlerDeps)
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager), enforcer)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if retryLog != nil {
		tree.AddDataService(wal.NewRetryLoop(retryLog, st.guarded))
		tree.AddDataService(services.NewWALGCService(retryLog, 0))
		logging.Info().Msg("WAL retry loop and GC added to supervisor tree")
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	} else {
		logging.Info().Msg("Shutdown signal received, supervisor stopped")
	}
	cancel()

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if retryLog != nil {
		if err := retryLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing WAL")
		}
	}
	logging.Info().Msg("Waypoint stopped")
}
