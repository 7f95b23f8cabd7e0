package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/config"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/db"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/pds"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("job", "pds-cleanup").Logger()

	cfg := config.Load()
	log.Info().Dur("retention", cfg.RelationshipRetention).Msg("PDS relationship cleanup job starting")

	database, err := db.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	cleanupService := pds.NewCleanupService(database, cfg.RelationshipRetention, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	count, err := cleanupService.CountExpiredRelationships(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count expired relationships")
	}

	log.Info().Int("count", count).Msg("relationships eligible for deletion")

	if count == 0 {
		log.Info().Msg("no cleanup needed, exiting")
		return
	}

	deleted, err := cleanupService.CleanupExpiredRelationships(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup failed")
	}

	log.Info().Int64("deleted", deleted).Msg("cleanup completed")
}
