//go:build integration

package consumer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/testutil"
)

func insertConsumer(t *testing.T, db *sqlx.DB, userID string, activeFrom, activeTo *time.Time) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO gateway.consumers (id, user_id, name, active_from, active_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, "Test Consumer", activeFrom, activeTo, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert consumer: %v", err)
	}
	return id
}

func insertConsumerOrg(t *testing.T, db *sqlx.DB, consumerID, orgCode string, activeFrom, activeTo *time.Time) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO gateway.consumer_organisations (consumer_id, org_code, active_from, active_to)
		VALUES ($1, $2, $3, $4)
	`, consumerID, orgCode, activeFrom, activeTo)
	if err != nil {
		t.Fatalf("Failed to insert consumer organisation: %v", err)
	}
}

func orgTime(ts time.Time) *time.Time {
	return &ts
}

// TestGetByUserID_Integration tests resolving a consumer by token subject
func TestGetByUserID_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	id := insertConsumer(t, db, "user-123", orgTime(from), orgTime(to))

	repo := NewRepository(db)

	c, err := repo.GetByUserID(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if c.ID != id {
		t.Errorf("Expected consumer id %s, got %s", id, c.ID)
	}
	if c.UserID != "user-123" {
		t.Errorf("Expected user id user-123, got %s", c.UserID)
	}
	if c.ActiveFrom == nil || !c.ActiveFrom.Equal(from) {
		t.Errorf("Expected active_from %s, got %v", from, c.ActiveFrom)
	}
	if c.ActiveTo == nil || !c.ActiveTo.Equal(to) {
		t.Errorf("Expected active_to %s, got %v", to, c.ActiveTo)
	}
}

// TestGetByUserID_NotFound_Integration tests the unknown-subject error
func TestGetByUserID_NotFound_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)

	_, err := repo.GetByUserID(context.Background(), "nobody")
	if !errors.Is(err, ErrConsumerNotFound) {
		t.Errorf("Expected ErrConsumerNotFound, got %v", err)
	}
}

// TestGetByUserID_NilWindow_Integration tests that missing activation bounds
// survive the round trip so the fail-closed check sees them
func TestGetByUserID_NilWindow_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	insertConsumer(t, db, "user-456", nil, nil)

	repo := NewRepository(db)

	c, err := repo.GetByUserID(context.Background(), "user-456")
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if c.ActiveFrom != nil || c.ActiveTo != nil {
		t.Errorf("Expected nil activation bounds, got %v and %v", c.ActiveFrom, c.ActiveTo)
	}
	if c.ActiveAt(time.Now().UTC()) {
		t.Error("Expected a consumer without bounds to be inactive")
	}
}

// TestActiveOrganisationCodes_Integration tests entitlement window filtering
// and ordering
func TestActiveOrganisationCodes_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	id := insertConsumer(t, db, "user-789", orgTime(now.AddDate(-1, 0, 0)), orgTime(now.AddDate(1, 0, 0)))

	insertConsumerOrg(t, db, id, "X26", orgTime(now.AddDate(0, -1, 0)), orgTime(now.AddDate(0, 1, 0)))
	insertConsumerOrg(t, db, id, "A01", nil, nil)
	insertConsumerOrg(t, db, id, "B02", orgTime(now.AddDate(0, -2, 0)), orgTime(now.AddDate(0, -1, 0)))
	insertConsumerOrg(t, db, id, "C03", orgTime(now.AddDate(0, 1, 0)), nil)

	repo := NewRepository(db)

	codes, err := repo.ActiveOrganisationCodes(context.Background(), id, now)
	if err != nil {
		t.Fatalf("ActiveOrganisationCodes failed: %v", err)
	}

	want := []string{"A01", "X26"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("Expected codes %v, got %v", want, codes)
	}
}

// TestActiveOrganisationCodes_OtherConsumer_Integration tests that
// entitlements never leak across consumers
func TestActiveOrganisationCodes_OtherConsumer_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	first := insertConsumer(t, db, "user-a", nil, nil)
	second := insertConsumer(t, db, "user-b", nil, nil)
	insertConsumerOrg(t, db, first, "X26", nil, nil)

	repo := NewRepository(db)

	codes, err := repo.ActiveOrganisationCodes(context.Background(), second, now)
	if err != nil {
		t.Fatalf("ActiveOrganisationCodes failed: %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("Expected no codes for the other consumer, got %v", codes)
	}
}
