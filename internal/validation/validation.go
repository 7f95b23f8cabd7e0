package validation

import (
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
)

// Rule describes one precondition on a request. Failed marks the rule as
// violated; Message explains the violation for the named Field.
type Rule struct {
	Field   string
	Message string
	Failed  bool
}

// Evaluate checks every rule and returns a single invalid-argument error
// carrying all failing rules, or nil when all pass. Rules are never
// short-circuited so the caller sees the complete set of problems at once.
func Evaluate(rules ...Rule) error {
	var fields map[string]string
	for _, r := range rules {
		if !r.Failed {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		fields[r.Field] = r.Message
	}
	if fields == nil {
		return nil
	}
	return apperrors.Validation(fields)
}
