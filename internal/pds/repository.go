package pds

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Relationship asserts an organisation's right to view a patient's record
// for a time window. Nil bounds are unbounded; the window is half-open
// [EffectiveFrom, EffectiveTo).
type Relationship struct {
	NhsNumber     string     `db:"nhs_number" json:"nhs_number"`
	OrgCode       string     `db:"org_code" json:"org_code"`
	EffectiveFrom *time.Time `db:"relationship_effective_from" json:"relationship_effective_from,omitempty"`
	EffectiveTo   *time.Time `db:"relationship_effective_to" json:"relationship_effective_to,omitempty"`
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// OrganisationsHaveAccessToPatient reports whether any of the given
// organisation codes holds a relationship to the NHS number that is current
// at now.
func (r *Repository) OrganisationsHaveAccessToPatient(ctx context.Context, nhsNumber string, orgCodes []string, now time.Time) (bool, error) {
	if len(orgCodes) == 0 {
		return false, nil
	}

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM gateway.pds_data
			WHERE nhs_number = $1
			  AND org_code = ANY($2)
			  AND (relationship_effective_from IS NULL OR relationship_effective_from <= $3)
			  AND (relationship_effective_to IS NULL OR relationship_effective_to > $3)
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, nhsNumber, pq.Array(orgCodes), now); err != nil {
		return false, fmt.Errorf("failed to check patient-organisation relationships: %w", err)
	}
	return exists, nil
}

// RepositoryInterface defines the contract for relationship lookups
type RepositoryInterface interface {
	OrganisationsHaveAccessToPatient(ctx context.Context, nhsNumber string, orgCodes []string, now time.Time) (bool, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
