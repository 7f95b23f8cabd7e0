package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// SetupTestDB connects to the integration test database and makes sure the
// gateway schema and tables exist. TEST_DATABASE_URL overrides the local
// default connection string.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = "host=localhost port=5432 user=localadmin password=localadmin dbname=gateway_test sslmode=disable"
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	for _, stmt := range gatewaySchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("Failed to prepare test schema: %v", err)
		}
	}

	return db
}

// CleanupTestDB removes the rows tests inserted into the gateway tables.
func CleanupTestDB(t *testing.T, db *sqlx.DB) {
	t.Helper()

	_, err := db.Exec(`
		TRUNCATE TABLE gateway.providers,
			gateway.consumers,
			gateway.consumer_organisations,
			gateway.pds_data
	`)
	if err != nil {
		t.Logf("Warning: Failed to clean up gateway tables: %v", err)
	}
}

var gatewaySchema = []string{
	`CREATE SCHEMA IF NOT EXISTS gateway`,
	`CREATE TABLE IF NOT EXISTS gateway.providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		fhir_version TEXT NOT NULL,
		base_url TEXT NOT NULL,
		system TEXT NOT NULL,
		code TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		is_for_comparison_only BOOLEAN NOT NULL DEFAULT FALSE,
		active_from TIMESTAMPTZ,
		active_to TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_by TEXT,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS gateway.consumers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		active_from TIMESTAMPTZ,
		active_to TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gateway.consumer_organisations (
		consumer_id TEXT NOT NULL,
		org_code TEXT NOT NULL,
		active_from TIMESTAMPTZ,
		active_to TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS gateway.pds_data (
		nhs_number TEXT NOT NULL,
		org_code TEXT NOT NULL,
		relationship_effective_from TIMESTAMPTZ,
		relationship_effective_to TIMESTAMPTZ
	)`,
}
