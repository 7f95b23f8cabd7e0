//go:build integration

package pds

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/testutil"
)

func insertRelationship(t *testing.T, db *sqlx.DB, nhsNumber, orgCode string, from, to *time.Time) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO gateway.pds_data
		(nhs_number, org_code, relationship_effective_from, relationship_effective_to)
		VALUES ($1, $2, $3, $4)
	`, nhsNumber, orgCode, from, to)
	if err != nil {
		t.Fatalf("Failed to insert relationship: %v", err)
	}
}

func relTime(ts time.Time) *time.Time {
	return &ts
}

// TestOrganisationsHaveAccessToPatient_WindowBoundaries_Integration tests
// that the relationship window is inclusive at the start and exclusive at
// the end
func TestOrganisationsHaveAccessToPatient_WindowBoundaries_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	insertRelationship(t, db, "9434765919", "X26", relTime(from), relTime(to))

	repo := NewRepository(db)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before the window opens", from.Add(-time.Second), false},
		{"exactly at the start", from, true},
		{"inside the window", from.AddDate(0, 0, 14), true},
		{"just before the end", to.Add(-time.Second), true},
		{"exactly at the end", to, false},
		{"after the window closed", to.Add(time.Second), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.OrganisationsHaveAccessToPatient(context.Background(), "9434765919", []string{"X26"}, tc.now)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %v at %s, got %v", tc.want, tc.now, got)
			}
		})
	}
}

// TestOrganisationsHaveAccessToPatient_NilBounds_Integration tests that
// missing bounds leave the relationship unbounded on that side
func TestOrganisationsHaveAccessToPatient_NilBounds_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	insertRelationship(t, db, "9434765919", "X26", nil, nil)
	insertRelationship(t, db, "9434765870", "Y90", nil, relTime(now.AddDate(0, 1, 0)))
	insertRelationship(t, db, "9434765889", "Z11", relTime(now.AddDate(0, -1, 0)), nil)

	repo := NewRepository(db)

	cases := []struct {
		name      string
		nhsNumber string
		orgCode   string
	}{
		{"both bounds open", "9434765919", "X26"},
		{"open start with a future end", "9434765870", "Y90"},
		{"past start with an open end", "9434765889", "Z11"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.OrganisationsHaveAccessToPatient(context.Background(), tc.nhsNumber, []string{tc.orgCode}, now)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !got {
				t.Errorf("Expected access for %s via %s", tc.nhsNumber, tc.orgCode)
			}
		})
	}
}

// TestOrganisationsHaveAccessToPatient_OrgCodes_Integration tests matching
// against the caller's full set of organisation codes
func TestOrganisationsHaveAccessToPatient_OrgCodes_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	insertRelationship(t, db, "9434765919", "X26", nil, nil)

	repo := NewRepository(db)

	got, err := repo.OrganisationsHaveAccessToPatient(context.Background(), "9434765919", []string{"A01", "X26", "B02"}, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !got {
		t.Error("Expected access when any of the codes matches")
	}

	got, err = repo.OrganisationsHaveAccessToPatient(context.Background(), "9434765919", []string{"A01", "B02"}, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got {
		t.Error("Expected no access when no code matches")
	}

	got, err = repo.OrganisationsHaveAccessToPatient(context.Background(), "9434765919", nil, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got {
		t.Error("Expected no access for an empty code set")
	}
}

// TestOrganisationsHaveAccessToPatient_WrongPatient_Integration tests that a
// relationship never grants access to another patient's record
func TestOrganisationsHaveAccessToPatient_WrongPatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	insertRelationship(t, db, "9434765919", "X26", nil, nil)

	repo := NewRepository(db)

	got, err := repo.OrganisationsHaveAccessToPatient(context.Background(), "9434765870", []string{"X26"}, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got {
		t.Error("Expected no access to a different patient")
	}
}
