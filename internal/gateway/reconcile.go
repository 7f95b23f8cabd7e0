package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
)

// Reconciler merges the tagged per-provider bundles into one output bundle.
// The pipeline guarantees bundles contains only successfully retrieved,
// tagged results and that primaryProvider names exactly one provider from
// the selection; implementations treat that provider's data as
// authoritative where entries conflict.
type Reconciler interface {
	Reconcile(ctx context.Context, bundles []*fhir.Bundle, primaryProvider string) (*fhir.Bundle, error)
}

// PrimaryFirstReconciler is the default merge strategy: the primary
// provider's entries come first and win conflicts; entries from secondary
// providers are appended unless another provider already contributed the
// same fullUrl.
type PrimaryFirstReconciler struct {
	clock clock.Clock
	log   zerolog.Logger
}

func NewPrimaryFirstReconciler(clk clock.Clock, log zerolog.Logger) *PrimaryFirstReconciler {
	return &PrimaryFirstReconciler{clock: clk, log: log}
}

// Ensure PrimaryFirstReconciler implements Reconciler
var _ Reconciler = (*PrimaryFirstReconciler)(nil)

func (r *PrimaryFirstReconciler) Reconcile(ctx context.Context, bundles []*fhir.Bundle, primaryProvider string) (*fhir.Bundle, error) {
	if len(bundles) == 0 {
		return nil, apperrors.New(apperrors.KindService, "no bundles to reconcile")
	}

	ordered := make([]*fhir.Bundle, 0, len(bundles))
	for _, b := range bundles {
		if TaggedBy(b, primaryProvider) {
			ordered = append(ordered, b)
		}
	}
	for _, b := range bundles {
		if !TaggedBy(b, primaryProvider) {
			ordered = append(ordered, b)
		}
	}

	seen := make(map[string]struct{})
	var entries []fhir.BundleEntry
	for _, b := range ordered {
		for _, entry := range b.Entry {
			if entry.FullUrl != nil {
				if _, dup := seen[*entry.FullUrl]; dup {
					continue
				}
				seen[*entry.FullUrl] = struct{}{}
			}
			entries = append(entries, entry)
		}
	}

	id := uuid.NewString()
	timestamp := r.clock.Now().UTC().Format(time.RFC3339)
	total := len(entries)
	merged := &fhir.Bundle{
		Id:        &id,
		Type:      fhir.BundleTypeSearchset,
		Timestamp: &timestamp,
		Total:     &total,
		Entry:     entries,
	}

	r.log.Debug().
		Int("input_bundles", len(bundles)).
		Int("entries", total).
		Str("primary", primaryProvider).
		Msg("reconciled provider bundles")
	return merged, nil
}
