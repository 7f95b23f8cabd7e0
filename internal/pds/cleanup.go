package pds

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// CleanupService removes patient-organisation relationships whose window
// closed before the retention cutoff. Open-ended relationships are never
// touched.
type CleanupService struct {
	db        *sqlx.DB
	retention time.Duration
	log       zerolog.Logger
}

func NewCleanupService(db *sqlx.DB, retention time.Duration, log zerolog.Logger) *CleanupService {
	return &CleanupService{db: db, retention: retention, log: log}
}

// CountExpiredRelationships returns how many rows are eligible for deletion.
func (s *CleanupService) CountExpiredRelationships(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	var count int
	query := `
		SELECT COUNT(*)
		FROM gateway.pds_data
		WHERE relationship_effective_to IS NOT NULL
		  AND relationship_effective_to < $1
	`
	if err := s.db.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, fmt.Errorf("failed to count expired relationships: %w", err)
	}
	return count, nil
}

// CleanupExpiredRelationships deletes eligible rows and returns how many
// were removed.
func (s *CleanupService) CleanupExpiredRelationships(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	s.log.Info().Time("cutoff", cutoff).Msg("removing relationships that expired before cutoff")

	query := `
		DELETE FROM gateway.pds_data
		WHERE relationship_effective_to IS NOT NULL
		  AND relationship_effective_to < $1
	`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired relationships: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return deleted, nil
}
