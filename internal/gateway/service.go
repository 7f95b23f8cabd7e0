package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/access"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/audit"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/fhirclient"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/validation"
)

// ProviderSource reads the configured provider registry.
type ProviderSource interface {
	RetrieveAllProviders(ctx context.Context) ([]provider.Provider, error)
}

// Querier performs the upstream FHIR calls.
type Querier interface {
	QueryEverything(ctx context.Context, p provider.Provider, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error)
	QueryStructuredRecord(ctx context.Context, p provider.Provider, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error)
}

// MetricsRecorder records aggregation outcomes. May be nil.
type MetricsRecorder interface {
	RecordAccessDenied(ctx context.Context)
	RecordAggregation(ctx context.Context, operation string, bundles, failures int)
}

// Service runs the full pipeline for a patient record request:
// access gate, provider selection, capability filtering, concurrent
// fan-out and reconciliation.
type Service struct {
	providers   ProviderSource
	gate        access.Validator
	probe       provider.CapabilityProbe
	client      Querier
	executor    *Executor
	reconciler  Reconciler
	audit       audit.Sink
	clock       clock.Clock
	metrics     MetricsRecorder
	fhirVersion string
	log         zerolog.Logger
}

func NewService(
	providers ProviderSource,
	gate access.Validator,
	probe provider.CapabilityProbe,
	client Querier,
	executor *Executor,
	reconciler Reconciler,
	sink audit.Sink,
	clk clock.Clock,
	metrics MetricsRecorder,
	fhirVersion string,
	log zerolog.Logger,
) *Service {
	return &Service{
		providers:   providers,
		gate:        gate,
		probe:       probe,
		client:      client,
		executor:    executor,
		reconciler:  reconciler,
		audit:       sink,
		clock:       clk,
		metrics:     metrics,
		fhirVersion: fhirVersion,
		log:         log,
	}
}

// Everything aggregates Patient/$everything across every supporting
// provider and reconciles the results against the primary source of truth.
// The patient id is the NHS number the record is filed under.
func (s *Service) Everything(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error) {
	if err := validation.Evaluate(
		validation.Rule{Field: "id", Message: "patient id is required", Failed: strings.TrimSpace(patientID) == ""},
		validation.Rule{Field: "_count", Message: "_count must not be negative", Failed: params.Count < 0},
	); err != nil {
		return nil, err
	}

	if err := s.validateAccess(ctx, principal, patientID); err != nil {
		return nil, err
	}

	return s.aggregate(ctx, "Patient/$everything", "Patient", "$everything",
		func(ctx context.Context, p provider.Provider) (*fhir.Bundle, error) {
			return s.client.QueryEverything(ctx, p, patientID, params)
		})
}

// GetStructuredRecord aggregates $gpc.getstructuredrecord across every
// supporting provider.
func (s *Service) GetStructuredRecord(ctx context.Context, principal *auth.Principal, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error) {
	if err := validation.Evaluate(
		validation.Rule{Field: "patientNHSNumber", Message: "NHS number is required", Failed: strings.TrimSpace(params.NhsNumber) == ""},
		validation.Rule{Field: "patientNHSNumber", Message: "NHS number must be 10 digits", Failed: params.NhsNumber != "" && !validNhsNumber(params.NhsNumber)},
	); err != nil {
		return nil, err
	}

	if err := s.validateAccess(ctx, principal, params.NhsNumber); err != nil {
		return nil, err
	}

	return s.aggregate(ctx, "Patient/$gpc.getstructuredrecord", "Patient", "$gpc.getstructuredrecord",
		func(ctx context.Context, p provider.Provider) (*fhir.Bundle, error) {
			return s.client.QueryStructuredRecord(ctx, p, params)
		})
}

func (s *Service) validateAccess(ctx context.Context, principal *auth.Principal, nhsNumber string) error {
	err := s.gate.ValidateAccess(ctx, principal, nhsNumber)
	if err != nil && apperrors.IsKind(err, apperrors.KindForbidden) && s.metrics != nil {
		s.metrics.RecordAccessDenied(ctx)
	}
	return err
}

// aggregate runs selection, capability filtering, fan-out and
// reconciliation. Partial provider failures are logged once as one
// aggregate and do not fail the request; only a total failure does.
func (s *Service) aggregate(ctx context.Context, operation, resourceName, operationName string, query QueryFunc) (*fhir.Bundle, error) {
	all, err := s.providers.RetrieveAllProviders(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDependency, "failed to read the provider registry", err)
	}

	selection, err := provider.SelectProviders(all, s.clock.Now(), s.fhirVersion)
	if err != nil {
		// registry configuration faults pass through unwrapped
		return nil, err
	}

	supported := provider.FilterSupported(ctx, s.probe, selection.Active, resourceName, operationName, s.log)
	if len(supported) == 0 {
		return nil, apperrors.Newf(apperrors.KindService, "no active provider supports %s", operation)
	}

	outcomes := s.executor.ExecuteAll(ctx, supported, query)
	bundles, aggErr := Partition(outcomes)

	if aggErr != nil {
		s.log.Error().Err(aggErr).
			Str("operation", operation).
			Strs("providers", aggErr.Providers()).
			Msg("provider fan-out completed with failures")
		s.audit.LogInformation(ctx, audit.EventProviderQueryFailed, audit.TypeProvider,
			"Provider Query Failed", aggErr.Error())
	}
	if s.metrics != nil {
		failures := 0
		if aggErr != nil {
			failures = len(aggErr.Errors)
		}
		s.metrics.RecordAggregation(ctx, operation, len(bundles), failures)
	}

	if len(bundles) == 0 {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, apperrors.Wrap(apperrors.KindTimeout, "request deadline expired before any provider responded", err)
			}
			return nil, apperrors.Wrap(apperrors.KindService, "request cancelled before any provider responded", err)
		}
		return nil, apperrors.Wrap(apperrors.KindService, "all provider queries failed", aggErr)
	}

	merged, err := s.reconciler.Reconcile(ctx, bundles, selection.Primary)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDependency, "reconciliation failed", err)
	}

	s.audit.LogInformation(ctx, audit.EventRecordAggregated, audit.TypeAggregation,
		"Record Aggregated",
		fmt.Sprintf("%s reconciled %d bundle(s) against primary provider %s", operation, len(bundles), selection.Primary))

	return merged, nil
}

func validNhsNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
