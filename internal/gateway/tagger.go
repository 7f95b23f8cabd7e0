package gateway

import (
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
)

// TagBundle stamps a bundle with its originating provider's source metadata
// so reconciliation and audit can trace every entry's provenance.
func TagBundle(b *fhir.Bundle, p provider.Provider) {
	if b == nil {
		return
	}
	if b.Meta == nil {
		b.Meta = &fhir.Meta{}
	}
	source := p.Source
	b.Meta.Source = &source

	system := p.System
	code := p.Code
	display := p.Name
	b.Meta.Tag = append(b.Meta.Tag, fhir.Coding{
		System:  &system,
		Code:    &code,
		Display: &display,
	})
}

// TaggedBy reports whether the bundle carries the provider's provenance tag.
func TaggedBy(b *fhir.Bundle, providerName string) bool {
	if b == nil || b.Meta == nil {
		return false
	}
	for _, tag := range b.Meta.Tag {
		if tag.Display != nil && *tag.Display == providerName {
			return true
		}
	}
	return false
}
