package validation

import (
	"errors"
	"testing"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
)

// TestEvaluate_AllPass tests that passing rules produce no error
func TestEvaluate_AllPass(t *testing.T) {
	err := Evaluate(
		Rule{Field: "name", Message: "name is required", Failed: false},
		Rule{Field: "code", Message: "code is required", Failed: false},
	)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// TestEvaluate_CollectsAllFailures tests that evaluation never short-circuits
func TestEvaluate_CollectsAllFailures(t *testing.T) {
	err := Evaluate(
		Rule{Field: "name", Message: "name is required", Failed: true},
		Rule{Field: "code", Message: "code is required", Failed: true},
		Rule{Field: "base_url", Message: "base URL must be valid", Failed: false},
	)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if !apperrors.IsKind(err, apperrors.KindInvalidArgument) {
		t.Errorf("Expected invalid_argument, got %s", apperrors.KindOf(err))
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatal("Expected an *apperrors.Error")
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("Expected 2 failing fields, got %d: %v", len(appErr.Fields), appErr.Fields)
	}
	if appErr.Fields["name"] != "name is required" {
		t.Errorf("Unexpected message for name: %s", appErr.Fields["name"])
	}
	if appErr.Fields["code"] != "code is required" {
		t.Errorf("Unexpected message for code: %s", appErr.Fields["code"])
	}
}

// TestEvaluate_NoRules tests the empty rule set
func TestEvaluate_NoRules(t *testing.T) {
	if err := Evaluate(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
