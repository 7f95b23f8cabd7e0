package consumer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrConsumerNotFound = errors.New("consumer not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetByUserID resolves the consumer registered for an authenticated user.
func (r *Repository) GetByUserID(ctx context.Context, userID string) (*Consumer, error) {
	var c Consumer
	query := `
		SELECT id, user_id, name, active_from, active_to, created_at
		FROM gateway.consumers
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConsumerNotFound
		}
		return nil, fmt.Errorf("failed to get consumer: %w", err)
	}
	return &c, nil
}

// ActiveOrganisationCodes returns the organisation codes the consumer is
// currently entitled to. Entitlement windows treat nil bounds as unbounded.
func (r *Repository) ActiveOrganisationCodes(ctx context.Context, consumerID string, now time.Time) ([]string, error) {
	var codes []string
	query := `
		SELECT org_code
		FROM gateway.consumer_organisations
		WHERE consumer_id = $1
		  AND (active_from IS NULL OR active_from <= $2)
		  AND (active_to IS NULL OR active_to >= $2)
		ORDER BY org_code
	`
	if err := r.db.SelectContext(ctx, &codes, query, consumerID, now); err != nil {
		return nil, fmt.Errorf("failed to query consumer organisations: %w", err)
	}
	return codes, nil
}

// RepositoryInterface defines the contract for consumer data access
type RepositoryInterface interface {
	GetByUserID(ctx context.Context, userID string) (*Consumer, error)
	ActiveOrganisationCodes(ctx context.Context, consumerID string, now time.Time) ([]string, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
