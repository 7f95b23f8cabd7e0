package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrProviderNotFound = errors.New("provider not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const providerColumns = `id, name, fhir_version, base_url, system, code, source,
	is_active, is_primary, is_for_comparison_only, active_from, active_to,
	created_by, created_at, updated_by, updated_at`

// RetrieveAllProviders returns every registered provider in registration
// order. The selection policy does its own filtering.
func (r *Repository) RetrieveAllProviders(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	query := fmt.Sprintf(`SELECT %s FROM gateway.providers ORDER BY created_at, name`, providerColumns)
	if err := r.db.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	return providers, nil
}

// ListProviders returns one page of providers plus the total count.
// status filters on "active"/"inactive" when non-empty.
func (r *Repository) ListProviders(ctx context.Context, limit, offset int, status string) ([]Provider, int, error) {
	where := ""
	args := []interface{}{}
	switch status {
	case "active":
		where = "WHERE is_active = true"
	case "inactive":
		where = "WHERE is_active = false"
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM gateway.providers %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count providers: %w", err)
	}

	var providers []Provider
	query := fmt.Sprintf(`SELECT %s FROM gateway.providers %s ORDER BY created_at, name LIMIT $1 OFFSET $2`,
		providerColumns, where)
	if err := r.db.SelectContext(ctx, &providers, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, total, nil
}

func (r *Repository) GetProvider(ctx context.Context, id string) (*Provider, error) {
	var p Provider
	query := fmt.Sprintf(`SELECT %s FROM gateway.providers WHERE id = $1`, providerColumns)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &p, nil
}

func (r *Repository) CreateProvider(ctx context.Context, req CreateProviderRequest, createdBy string) (*Provider, error) {
	p := Provider{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		FhirVersion:         req.FhirVersion,
		BaseURL:             req.BaseURL,
		System:              req.System,
		Code:                req.Code,
		Source:              req.Source,
		IsActive:            true,
		IsPrimary:           req.IsPrimary,
		IsForComparisonOnly: req.IsForComparisonOnly,
		ActiveFrom:          req.ActiveFrom,
		ActiveTo:            req.ActiveTo,
		CreatedBy:           createdBy,
		CreatedAt:           time.Now().UTC(),
	}

	query := `
		INSERT INTO gateway.providers
		(id, name, fhir_version, base_url, system, code, source,
		 is_active, is_primary, is_for_comparison_only, active_from, active_to,
		 created_by, created_at)
		VALUES (:id, :name, :fhir_version, :base_url, :system, :code, :source,
		 :is_active, :is_primary, :is_for_comparison_only, :active_from, :active_to,
		 :created_by, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return nil, fmt.Errorf("failed to insert provider: %w", err)
	}
	return &p, nil
}

func (r *Repository) UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest, updatedBy string) (*Provider, error) {
	p, err := r.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BaseURL != nil {
		p.BaseURL = *req.BaseURL
	}
	if req.System != nil {
		p.System = *req.System
	}
	if req.Code != nil {
		p.Code = *req.Code
	}
	if req.Source != nil {
		p.Source = *req.Source
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.IsPrimary != nil {
		p.IsPrimary = *req.IsPrimary
	}
	if req.IsForComparisonOnly != nil {
		p.IsForComparisonOnly = *req.IsForComparisonOnly
	}
	if req.ActiveFrom != nil {
		p.ActiveFrom = req.ActiveFrom
	}
	if req.ActiveTo != nil {
		p.ActiveTo = req.ActiveTo
	}
	now := time.Now().UTC()
	p.UpdatedBy = &updatedBy
	p.UpdatedAt = &now

	query := `
		UPDATE gateway.providers SET
			base_url = :base_url, system = :system, code = :code, source = :source,
			is_active = :is_active, is_primary = :is_primary,
			is_for_comparison_only = :is_for_comparison_only,
			active_from = :active_from, active_to = :active_to,
			updated_by = :updated_by, updated_at = :updated_at
		WHERE id = :id
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return nil, fmt.Errorf("failed to update provider: %w", err)
	}
	return p, nil
}

// DeactivateProvider switches a provider off without removing its row, so
// historic provenance tags keep resolving.
func (r *Repository) DeactivateProvider(ctx context.Context, id, updatedBy string) error {
	query := `
		UPDATE gateway.providers
		SET is_active = false, updated_by = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, updatedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate provider: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProviderNotFound
	}
	return nil
}
