package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/audit"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/fhirclient"
)

const fhirJSON = "application/fhir+json"

// ServiceInterface defines the contract for the aggregation pipeline
type ServiceInterface interface {
	Everything(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error)
	GetStructuredRecord(ctx context.Context, principal *auth.Principal, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

type Handler struct {
	service ServiceInterface
	log     zerolog.Logger
}

func NewHandler(service ServiceInterface, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Everything handles GET /fhir/Patient/{id}/$everything
func (h *Handler) Everything(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondOutcome(w, http.StatusUnauthorized, fhir.IssueTypeLogin, "User not authenticated")
		return
	}

	ctx := audit.WithCorrelationID(r.Context(), uuid.NewString())

	q := r.URL.Query()
	params := fhirclient.EverythingParams{
		Start:      q.Get("start"),
		End:        q.Get("end"),
		TypeFilter: q.Get("_type"),
		Since:      q.Get("_since"),
	}
	if countStr := q.Get("_count"); countStr != "" {
		count, err := strconv.Atoi(countStr)
		if err != nil {
			respondOutcome(w, http.StatusBadRequest, fhir.IssueTypeInvalid, "_count must be an integer")
			return
		}
		params.Count = count
	}

	bundle, err := h.service.Everything(ctx, principal, mux.Vars(r)["id"], params)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondBundle(w, bundle)
}

// GetStructuredRecord handles POST /fhir/Patient/$gpc.getstructuredrecord
func (h *Handler) GetStructuredRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondOutcome(w, http.StatusUnauthorized, fhir.IssueTypeLogin, "User not authenticated")
		return
	}

	ctx := audit.WithCorrelationID(r.Context(), uuid.NewString())

	var body fhir.Parameters
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondOutcome(w, http.StatusBadRequest, fhir.IssueTypeInvalid, "Request body is not a valid Parameters resource")
		return
	}

	bundle, err := h.service.GetStructuredRecord(ctx, principal, structuredRecordParams(body))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondBundle(w, bundle)
}

func structuredRecordParams(body fhir.Parameters) fhirclient.StructuredRecordParams {
	var params fhirclient.StructuredRecordParams
	for _, p := range body.Parameter {
		switch p.Name {
		case "patientNHSNumber":
			if p.ValueIdentifier != nil && p.ValueIdentifier.Value != nil {
				params.NhsNumber = *p.ValueIdentifier.Value
			}
		case "patientDateOfBirth":
			if p.ValueDate != nil {
				params.DateOfBirth = *p.ValueDate
			}
		case "demographicsOnly":
			if p.ValueBoolean != nil {
				params.DemographicsOnly = *p.ValueBoolean
			}
		case "includeInactivePatients":
			if p.ValueBoolean != nil {
				params.IncludeInactivePatients = *p.ValueBoolean
			}
		}
	}
	return params
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidArgument:
		respondOutcome(w, http.StatusBadRequest, fhir.IssueTypeInvalid, err.Error())
	case apperrors.KindUnauthorized:
		respondOutcome(w, http.StatusUnauthorized, fhir.IssueTypeLogin, err.Error())
	case apperrors.KindForbidden:
		respondOutcome(w, http.StatusForbidden, fhir.IssueTypeForbidden, err.Error())
	case apperrors.KindDependencyValidation, apperrors.KindDependency, apperrors.KindService:
		respondOutcome(w, http.StatusBadGateway, fhir.IssueTypeTransient, err.Error())
	case apperrors.KindTimeout:
		respondOutcome(w, http.StatusGatewayTimeout, fhir.IssueTypeTimeout, err.Error())
	default:
		h.log.Error().Err(err).Msg("unclassified error reached the handler")
		respondOutcome(w, http.StatusInternalServerError, fhir.IssueTypeException, "internal server error")
	}
}

func respondBundle(w http.ResponseWriter, bundle *fhir.Bundle) {
	w.Header().Set("Content-Type", fhirJSON)
	json.NewEncoder(w).Encode(bundle)
}

func respondOutcome(w http.ResponseWriter, status int, code fhir.IssueType, diagnostics string) {
	outcome := fhir.OperationOutcome{
		Issue: []fhir.OperationOutcomeIssue{
			{
				Severity:    fhir.IssueSeverityError,
				Code:        code,
				Diagnostics: &diagnostics,
			},
		},
	}
	w.Header().Set("Content-Type", fhirJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(outcome)
}
