package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
)

var reconcileNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func taggedBundle(p provider.Provider, fullUrls ...string) *fhir.Bundle {
	b := &fhir.Bundle{}
	for _, u := range fullUrls {
		fullUrl := u
		b.Entry = append(b.Entry, fhir.BundleEntry{
			FullUrl:  &fullUrl,
			Resource: json.RawMessage(`{"resourceType":"Observation"}`),
		})
	}
	TagBundle(b, p)
	return b
}

// TestReconcile_PrimaryEntriesFirst tests that the primary provider's
// entries lead the merged bundle
func TestReconcile_PrimaryEntriesFirst(t *testing.T) {
	primary := provider.Provider{Name: "spine", Source: "https://spine"}
	secondary := provider.Provider{Name: "emis", Source: "https://emis"}

	bundles := []*fhir.Bundle{
		taggedBundle(secondary, "urn:uuid:obs-2"),
		taggedBundle(primary, "urn:uuid:obs-1"),
	}

	r := NewPrimaryFirstReconciler(clock.At(reconcileNow), zerolog.Nop())
	merged, err := r.Reconcile(context.Background(), bundles, "spine")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(merged.Entry) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(merged.Entry))
	}
	if *merged.Entry[0].FullUrl != "urn:uuid:obs-1" {
		t.Errorf("Expected the primary's entry first, got %s", *merged.Entry[0].FullUrl)
	}
}

// TestReconcile_DuplicateFullUrlPrimaryWins tests conflict resolution on
// fullUrl collisions
func TestReconcile_DuplicateFullUrlPrimaryWins(t *testing.T) {
	primary := provider.Provider{Name: "spine", Source: "https://spine"}
	secondary := provider.Provider{Name: "emis", Source: "https://emis"}

	primaryBundle := taggedBundle(primary, "urn:uuid:shared")
	primaryBundle.Entry[0].Resource = json.RawMessage(`{"resourceType":"Observation","status":"final"}`)
	secondaryBundle := taggedBundle(secondary, "urn:uuid:shared", "urn:uuid:extra")

	r := NewPrimaryFirstReconciler(clock.At(reconcileNow), zerolog.Nop())
	merged, err := r.Reconcile(context.Background(), []*fhir.Bundle{secondaryBundle, primaryBundle}, "spine")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(merged.Entry) != 2 {
		t.Fatalf("Expected 2 entries after dedupe, got %d", len(merged.Entry))
	}
	if string(merged.Entry[0].Resource) != `{"resourceType":"Observation","status":"final"}` {
		t.Errorf("Expected the primary's resource to win the collision, got %s", merged.Entry[0].Resource)
	}
	if merged.Total == nil || *merged.Total != 2 {
		t.Errorf("Expected total 2, got %v", merged.Total)
	}
}

// TestReconcile_OutputShape tests the merged bundle's metadata
func TestReconcile_OutputShape(t *testing.T) {
	primary := provider.Provider{Name: "spine", Source: "https://spine"}

	r := NewPrimaryFirstReconciler(clock.At(reconcileNow), zerolog.Nop())
	merged, err := r.Reconcile(context.Background(), []*fhir.Bundle{taggedBundle(primary, "urn:uuid:obs-1")}, "spine")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if merged.Type != fhir.BundleTypeSearchset {
		t.Errorf("Expected searchset bundle, got %v", merged.Type)
	}
	if merged.Id == nil || *merged.Id == "" {
		t.Error("Expected a generated bundle id")
	}
	if merged.Timestamp == nil || *merged.Timestamp != "2026-03-15T12:00:00Z" {
		t.Errorf("Expected timestamp from the injected clock, got %v", merged.Timestamp)
	}
}

// TestReconcile_EntriesWithoutFullUrlNeverDeduped tests that entries lacking
// a fullUrl are all kept
func TestReconcile_EntriesWithoutFullUrlNeverDeduped(t *testing.T) {
	primary := provider.Provider{Name: "spine", Source: "https://spine"}

	b1 := &fhir.Bundle{Entry: []fhir.BundleEntry{{Resource: json.RawMessage(`{"resourceType":"Observation"}`)}}}
	TagBundle(b1, primary)
	b2 := &fhir.Bundle{Entry: []fhir.BundleEntry{{Resource: json.RawMessage(`{"resourceType":"Condition"}`)}}}
	TagBundle(b2, provider.Provider{Name: "emis", Source: "https://emis"})

	r := NewPrimaryFirstReconciler(clock.At(reconcileNow), zerolog.Nop())
	merged, err := r.Reconcile(context.Background(), []*fhir.Bundle{b1, b2}, "spine")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(merged.Entry) != 2 {
		t.Errorf("Expected both anonymous entries kept, got %d", len(merged.Entry))
	}
}

// TestReconcile_NoBundles tests the empty input guard
func TestReconcile_NoBundles(t *testing.T) {
	r := NewPrimaryFirstReconciler(clock.At(reconcileNow), zerolog.Nop())

	_, err := r.Reconcile(context.Background(), nil, "spine")

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !apperrors.IsKind(err, apperrors.KindService) {
		t.Errorf("Expected service kind, got %s", apperrors.KindOf(err))
	}
}
