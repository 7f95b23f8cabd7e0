package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/audit"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/config"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/db"
	gatewayhttp "github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/http"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/telemetry"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "fhir-gateway-service").Logger()

	cfg := config.Load()
	ctx := context.Background()

	// OpenTelemetry. The service keeps running without it.
	otelProvider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		log.Warn().Err(err).Msg("telemetry initialization failed, continuing without it")
	}

	var metrics *telemetry.Metrics
	if m, err := telemetry.InitMetrics(); err != nil {
		log.Warn().Err(err).Msg("metrics initialization failed, continuing without custom metrics")
	} else {
		metrics = m
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	// Audit trail. A missing broker degrades to a no-op sink rather than
	// blocking startup.
	var sink audit.Sink
	if pub, err := audit.NewPublisher(log); err != nil {
		log.Warn().Err(err).Msg("audit publisher unavailable, audit events will be discarded")
		sink = audit.Nop{}
	} else {
		sink = pub
		defer pub.Close()
	}

	authCfg := auth.LoadConfig()
	jwks, err := auth.NewJWKS(authCfg.JWKSURL, 0)
	if err != nil {
		log.Fatal().Err(err).Str("jwks_url", authCfg.JWKSURL).Msg("failed to load JWKS")
	}
	defer jwks.Close()
	verifier := auth.NewVerifier(authCfg, jwks)

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PermissionsFile).Msg("failed to load permissions")
	}

	router := gatewayhttp.SetupRouter(gatewayhttp.Deps{
		DB:       database,
		Verifier: verifier,
		Perms:    perms,
		Audit:    sink,
		Clock:    clock.System{},
		Metrics:  metrics,
		Cfg:      cfg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("fhir-gateway-service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}
}
