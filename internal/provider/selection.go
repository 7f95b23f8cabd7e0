package provider

import (
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
)

// Selection is the outcome of the provider selection policy: the single
// source-of-truth provider plus the ordered set to query.
type Selection struct {
	// Primary is the name of the source-of-truth provider.
	Primary string

	// Active holds the providers to query, primary providers first,
	// comparison-only providers excluded. Secondary ordering follows the
	// input collection.
	Active []Provider
}

// SelectProviders filters the registry down to the providers active at now
// for the given FHIR version, validates that exactly one of them is primary,
// and returns the query set.
//
// Zero or multiple qualifying primary providers is a registry configuration
// fault and fails the whole request; no default is ever picked.
func SelectProviders(all []Provider, now time.Time, fhirVersion string) (Selection, error) {
	var filtered []Provider
	for _, p := range all {
		if !p.ActiveAt(now) {
			continue
		}
		if p.FhirVersion != "" && fhirVersion != "" && !strings.EqualFold(p.FhirVersion, fhirVersion) {
			continue
		}
		filtered = append(filtered, p)
	}

	var primaries []string
	for _, p := range filtered {
		if p.IsPrimary {
			primaries = append(primaries, p.Name)
		}
	}
	switch len(primaries) {
	case 1:
		// exactly one source of truth
	case 0:
		return Selection{}, apperrors.Newf(apperrors.KindDependencyValidation,
			"no active primary provider configured for FHIR version %s", fhirVersion)
	default:
		return Selection{}, apperrors.Newf(apperrors.KindDependencyValidation,
			"expected exactly one active primary provider, found %d: %s",
			len(primaries), strings.Join(primaries, ", "))
	}

	active := make([]Provider, 0, len(filtered))
	for _, p := range filtered {
		if p.IsPrimary && !p.IsForComparisonOnly {
			active = append(active, p)
		}
	}
	for _, p := range filtered {
		if !p.IsPrimary && !p.IsForComparisonOnly {
			active = append(active, p)
		}
	}

	return Selection{Primary: primaries[0], Active: active}, nil
}
