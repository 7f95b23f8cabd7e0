package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/fhirclient"
)

type mockGatewayService struct {
	everythingFunc func(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error)
	structuredFunc func(ctx context.Context, principal *auth.Principal, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error)
}

func (m *mockGatewayService) Everything(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error) {
	return m.everythingFunc(ctx, principal, patientID, params)
}

func (m *mockGatewayService) GetStructuredRecord(ctx context.Context, principal *auth.Principal, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error) {
	return m.structuredFunc(ctx, principal, params)
}

func everythingRequest(t *testing.T, patientID, query string, principal *auth.Principal) *http.Request {
	t.Helper()
	req := httptest.NewRequest("GET", "/fhir/Patient/"+patientID+"/$everything"+query, nil)
	req = mux.SetURLVars(req, map[string]string{"id": patientID})
	if principal != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
	}
	return req
}

func decodeOutcome(t *testing.T, rr *httptest.ResponseRecorder) fhir.OperationOutcome {
	t.Helper()
	var outcome fhir.OperationOutcome
	if err := json.NewDecoder(rr.Body).Decode(&outcome); err != nil {
		t.Fatalf("Failed to decode OperationOutcome: %v", err)
	}
	if len(outcome.Issue) == 0 {
		t.Fatal("Expected at least one issue")
	}
	return outcome
}

// TestEverythingHandler_Success tests a successful aggregation response
func TestEverythingHandler_Success(t *testing.T) {
	var gotPatientID string
	var gotParams fhirclient.EverythingParams
	service := &mockGatewayService{
		everythingFunc: func(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error) {
			gotPatientID = patientID
			gotParams = params
			return &fhir.Bundle{Type: fhir.BundleTypeSearchset}, nil
		},
	}
	handler := NewHandler(service, zerolog.Nop())

	req := everythingRequest(t, "9434765919", "?start=2020-01-01&_type=Observation&_count=50", &auth.Principal{UserID: "user-1"})
	rr := httptest.NewRecorder()

	handler.Everything(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/fhir+json" {
		t.Errorf("Expected fhir+json content type, got %s", ct)
	}
	if gotPatientID != "9434765919" {
		t.Errorf("Expected patient id passed through, got %s", gotPatientID)
	}
	if gotParams.Start != "2020-01-01" || gotParams.TypeFilter != "Observation" || gotParams.Count != 50 {
		t.Errorf("Unexpected params: %+v", gotParams)
	}
}

// TestEverythingHandler_NoPrincipal tests the unauthenticated response
func TestEverythingHandler_NoPrincipal(t *testing.T) {
	handler := NewHandler(&mockGatewayService{}, zerolog.Nop())

	rr := httptest.NewRecorder()
	handler.Everything(rr, everythingRequest(t, "9434765919", "", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	outcome := decodeOutcome(t, rr)
	if outcome.Issue[0].Code != fhir.IssueTypeLogin {
		t.Errorf("Expected login issue, got %v", outcome.Issue[0].Code)
	}
}

// TestEverythingHandler_BadCount tests the _count parse failure
func TestEverythingHandler_BadCount(t *testing.T) {
	handler := NewHandler(&mockGatewayService{}, zerolog.Nop())

	rr := httptest.NewRecorder()
	handler.Everything(rr, everythingRequest(t, "9434765919", "?_count=lots", &auth.Principal{UserID: "user-1"}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	outcome := decodeOutcome(t, rr)
	if outcome.Issue[0].Code != fhir.IssueTypeInvalid {
		t.Errorf("Expected invalid issue, got %v", outcome.Issue[0].Code)
	}
}

// TestEverythingHandler_ErrorMapping tests the kind to status code mapping
func TestEverythingHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantIssue  fhir.IssueType
	}{
		{"invalid argument", apperrors.New(apperrors.KindInvalidArgument, "bad request"), http.StatusBadRequest, fhir.IssueTypeInvalid},
		{"unauthorized", apperrors.New(apperrors.KindUnauthorized, "no consumer"), http.StatusUnauthorized, fhir.IssueTypeLogin},
		{"forbidden", apperrors.New(apperrors.KindForbidden, "no relationship"), http.StatusForbidden, fhir.IssueTypeForbidden},
		{"registry fault", apperrors.New(apperrors.KindDependencyValidation, "two primaries"), http.StatusBadGateway, fhir.IssueTypeTransient},
		{"dependency", apperrors.New(apperrors.KindDependency, "registry down"), http.StatusBadGateway, fhir.IssueTypeTransient},
		{"total failure", apperrors.New(apperrors.KindService, "all failed"), http.StatusBadGateway, fhir.IssueTypeTransient},
		{"timeout", apperrors.New(apperrors.KindTimeout, "budget exceeded"), http.StatusGatewayTimeout, fhir.IssueTypeTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &mockGatewayService{
				everythingFunc: func(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error) {
					return nil, tc.err
				},
			}
			handler := NewHandler(service, zerolog.Nop())

			rr := httptest.NewRecorder()
			handler.Everything(rr, everythingRequest(t, "9434765919", "", &auth.Principal{UserID: "user-1"}))

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected %d, got %d", tc.wantStatus, rr.Code)
			}
			outcome := decodeOutcome(t, rr)
			if outcome.Issue[0].Code != tc.wantIssue {
				t.Errorf("Expected issue %v, got %v", tc.wantIssue, outcome.Issue[0].Code)
			}
		})
	}
}

// TestEverythingHandler_UnclassifiedError tests that foreign errors become a
// generic 500 without leaking details
func TestEverythingHandler_UnclassifiedError(t *testing.T) {
	service := &mockGatewayService{
		everythingFunc: func(ctx context.Context, principal *auth.Principal, patientID string, params fhirclient.EverythingParams) (*fhir.Bundle, error) {
			return nil, context.Canceled
		},
	}
	handler := NewHandler(service, zerolog.Nop())

	rr := httptest.NewRecorder()
	handler.Everything(rr, everythingRequest(t, "9434765919", "", &auth.Principal{UserID: "user-1"}))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "context canceled") {
		t.Error("Expected the internal cause not to leak into the response")
	}
}

// TestGetStructuredRecordHandler_Success tests Parameters decoding
func TestGetStructuredRecordHandler_Success(t *testing.T) {
	var gotParams fhirclient.StructuredRecordParams
	service := &mockGatewayService{
		structuredFunc: func(ctx context.Context, principal *auth.Principal, params fhirclient.StructuredRecordParams) (*fhir.Bundle, error) {
			gotParams = params
			return &fhir.Bundle{Type: fhir.BundleTypeSearchset}, nil
		},
	}
	handler := NewHandler(service, zerolog.Nop())

	body := `{
		"resourceType": "Parameters",
		"parameter": [
			{"name": "patientNHSNumber", "valueIdentifier": {"system": "https://fhir.nhs.uk/Id/nhs-number", "value": "9434765919"}},
			{"name": "patientDateOfBirth", "valueDate": "1980-06-01"},
			{"name": "demographicsOnly", "valueBoolean": true}
		]
	}`
	req := httptest.NewRequest("POST", "/fhir/Patient/$gpc.getstructuredrecord", strings.NewReader(body))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UserID: "user-1"}))
	rr := httptest.NewRecorder()

	handler.GetStructuredRecord(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotParams.NhsNumber != "9434765919" {
		t.Errorf("Expected NHS number extracted, got %q", gotParams.NhsNumber)
	}
	if gotParams.DateOfBirth != "1980-06-01" {
		t.Errorf("Expected date of birth extracted, got %q", gotParams.DateOfBirth)
	}
	if !gotParams.DemographicsOnly {
		t.Error("Expected demographicsOnly true")
	}
	if gotParams.IncludeInactivePatients {
		t.Error("Expected includeInactivePatients to default to false")
	}
}

// TestGetStructuredRecordHandler_BadBody tests a malformed request body
func TestGetStructuredRecordHandler_BadBody(t *testing.T) {
	handler := NewHandler(&mockGatewayService{}, zerolog.Nop())

	req := httptest.NewRequest("POST", "/fhir/Patient/$gpc.getstructuredrecord", strings.NewReader("{not json"))
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UserID: "user-1"}))
	rr := httptest.NewRecorder()

	handler.GetStructuredRecord(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

// TestGetStructuredRecordHandler_NoPrincipal tests the unauthenticated path
func TestGetStructuredRecordHandler_NoPrincipal(t *testing.T) {
	handler := NewHandler(&mockGatewayService{}, zerolog.Nop())

	req := httptest.NewRequest("POST", "/fhir/Patient/$gpc.getstructuredrecord", strings.NewReader("{}"))
	rr := httptest.NewRecorder()

	handler.GetStructuredRecord(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
}
