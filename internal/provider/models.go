package provider

import "time"

// Provider is a configured upstream FHIR source. Rows are administered
// through the admin endpoints and read-only from the aggregation pipeline's
// point of view.
type Provider struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	FhirVersion string `db:"fhir_version" json:"fhir_version"`
	BaseURL     string `db:"base_url" json:"base_url"`

	// Coding identity stamped onto every bundle the provider returns.
	System string `db:"system" json:"system"`
	Code   string `db:"code" json:"code"`
	Source string `db:"source" json:"source"`

	IsActive  bool `db:"is_active" json:"is_active"`
	IsPrimary bool `db:"is_primary" json:"is_primary"`

	// Comparison-only providers take part in selection filtering for
	// diagnostics but are never queried and never appear in merged output.
	IsForComparisonOnly bool `db:"is_for_comparison_only" json:"is_for_comparison_only"`

	ActiveFrom *time.Time `db:"active_from" json:"active_from,omitempty"`
	ActiveTo   *time.Time `db:"active_to" json:"active_to,omitempty"`

	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedBy *string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// ActiveAt reports whether the provider is switched on and inside its
// activity window at the given instant. Nil window bounds are unbounded.
func (p Provider) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ActiveFrom != nil && p.ActiveFrom.After(now) {
		return false
	}
	if p.ActiveTo != nil && p.ActiveTo.Before(now) {
		return false
	}
	return true
}

// CreateProviderRequest represents the request to register a new provider
type CreateProviderRequest struct {
	Name                string     `json:"name"`
	FhirVersion         string     `json:"fhir_version"`
	BaseURL             string     `json:"base_url"`
	System              string     `json:"system"`
	Code                string     `json:"code"`
	Source              string     `json:"source"`
	IsPrimary           bool       `json:"is_primary"`
	IsForComparisonOnly bool       `json:"is_for_comparison_only"`
	ActiveFrom          *time.Time `json:"active_from,omitempty"`
	ActiveTo            *time.Time `json:"active_to,omitempty"`
}

// UpdateProviderRequest represents a partial update to a provider
type UpdateProviderRequest struct {
	BaseURL             *string    `json:"base_url,omitempty"`
	System              *string    `json:"system,omitempty"`
	Code                *string    `json:"code,omitempty"`
	Source              *string    `json:"source,omitempty"`
	IsActive            *bool      `json:"is_active,omitempty"`
	IsPrimary           *bool      `json:"is_primary,omitempty"`
	IsForComparisonOnly *bool      `json:"is_for_comparison_only,omitempty"`
	ActiveFrom          *time.Time `json:"active_from,omitempty"`
	ActiveTo            *time.Time `json:"active_to,omitempty"`
}
