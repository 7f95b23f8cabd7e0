package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/audit"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/consumer"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/pds"
)

// Gate validates that an authenticated caller may read a specific patient's
// record. The four checks run strictly in order, re-evaluated from storage
// on every call; nothing is cached between requests.
type Gate struct {
	consumers     consumer.RepositoryInterface
	relationships pds.RepositoryInterface
	audit         audit.Sink
	clock         clock.Clock
	requiredRole  string
	log           zerolog.Logger
}

func NewGate(consumers consumer.RepositoryInterface, relationships pds.RepositoryInterface, sink audit.Sink, clk clock.Clock, requiredRole string, log zerolog.Logger) *Gate {
	return &Gate{
		consumers:     consumers,
		relationships: relationships,
		audit:         sink,
		clock:         clk,
		requiredRole:  requiredRole,
		log:           log,
	}
}

// ValidateAccess returns nil when the principal maps to an active consumer
// that holds the required role and is entitled to at least one organisation
// with a current relationship to the patient. Every denial after identity
// resolution emits exactly one audit entry before the error propagates.
func (g *Gate) ValidateAccess(ctx context.Context, principal *auth.Principal, nhsNumber string) error {
	if principal == nil || principal.UserID == "" {
		return apperrors.New(apperrors.KindUnauthorized, "request carries no authenticated identity")
	}

	c, err := g.consumers.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, consumer.ErrConsumerNotFound) {
			return apperrors.Newf(apperrors.KindUnauthorized,
				"no consumer registered for user %s", principal.UserID)
		}
		return apperrors.Wrap(apperrors.KindDependency, "failed to resolve consumer", err)
	}

	now := g.clock.Now()
	if !principal.HasRole(g.requiredRole) || !c.ActiveAt(now) {
		msg := fmt.Sprintf("Consumer %s is inactive or does not hold the %s role", c.ID, g.requiredRole)
		g.audit.LogInformation(ctx, audit.EventAccessForbidden, audit.TypeAccess, "Access Forbidden", msg)
		return apperrors.New(apperrors.KindForbidden, msg)
	}

	orgCodes, err := g.consumers.ActiveOrganisationCodes(ctx, c.ID, now)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDependency, "failed to resolve consumer organisations", err)
	}

	allowed, err := g.relationships.OrganisationsHaveAccessToPatient(ctx, nhsNumber, orgCodes, now)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDependency, "failed to check patient-organisation relationships", err)
	}
	if !allowed {
		msg := fmt.Sprintf("None of the organisations for consumer %s have access to patient %s", c.ID, nhsNumber)
		g.audit.LogInformation(ctx, audit.EventAccessForbidden, audit.TypeAccess, "Access Forbidden", msg)
		return apperrors.New(apperrors.KindForbidden, msg)
	}

	return nil
}

// Validator is the contract the aggregation pipeline depends on.
type Validator interface {
	ValidateAccess(ctx context.Context, principal *auth.Principal, nhsNumber string) error
}

// Ensure Gate implements Validator
var _ Validator = (*Gate)(nil)
