package fhirclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
)

const fhirJSON = "application/fhir+json"

// EverythingParams are the optional filters on a Patient/$everything query.
type EverythingParams struct {
	Start      string
	End        string
	TypeFilter string
	Since      string
	Count      int
}

// StructuredRecordParams shape a $gpc.getstructuredrecord request.
type StructuredRecordParams struct {
	NhsNumber               string
	DateOfBirth             string
	DemographicsOnly        bool
	IncludeInactivePatients bool
}

// Client queries upstream FHIR providers. Transport-level retries are
// handled by retryablehttp; per-call deadlines come from the caller's
// context so the fan-out executor stays in charge of time budgets.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	// no client-level timeout: the context deadline governs each call
	retryClient.HTTPClient = &http.Client{}

	return &Client{
		http: retryClient.StandardClient(),
		log:  log,
	}
}

// QueryEverything performs GET {base}/Patient/{id}/$everything.
func (c *Client) QueryEverything(ctx context.Context, p provider.Provider, patientID string, params EverythingParams) (*fhir.Bundle, error) {
	endpoint, err := joinPath(p.BaseURL, "Patient", patientID, "$everything")
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if params.Start != "" {
		q.Set("start", params.Start)
	}
	if params.End != "" {
		q.Set("end", params.End)
	}
	if params.TypeFilter != "" {
		q.Set("_type", params.TypeFilter)
	}
	if params.Since != "" {
		q.Set("_since", params.Since)
	}
	if params.Count > 0 {
		q.Set("_count", strconv.Itoa(params.Count))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", fhirJSON)

	return c.doBundle(req, p)
}

// QueryStructuredRecord performs POST {base}/Patient/$gpc.getstructuredrecord
// with a FHIR Parameters body.
func (c *Client) QueryStructuredRecord(ctx context.Context, p provider.Provider, params StructuredRecordParams) (*fhir.Bundle, error) {
	endpoint, err := joinPath(p.BaseURL, "Patient", "$gpc.getstructuredrecord")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(structuredRecordParameters(params))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request parameters: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", fhirJSON)
	req.Header.Set("Content-Type", fhirJSON)

	return c.doBundle(req, p)
}

func structuredRecordParameters(params StructuredRecordParams) fhir.Parameters {
	nhsNumberSystem := "https://fhir.nhs.uk/Id/nhs-number"
	parameters := fhir.Parameters{
		Parameter: []fhir.ParametersParameter{
			{
				Name: "patientNHSNumber",
				ValueIdentifier: &fhir.Identifier{
					System: &nhsNumberSystem,
					Value:  &params.NhsNumber,
				},
			},
		},
	}
	if params.DateOfBirth != "" {
		dob := params.DateOfBirth
		parameters.Parameter = append(parameters.Parameter, fhir.ParametersParameter{
			Name:      "patientDateOfBirth",
			ValueDate: &dob,
		})
	}
	if params.DemographicsOnly {
		demographicsOnly := true
		parameters.Parameter = append(parameters.Parameter, fhir.ParametersParameter{
			Name:         "demographicsOnly",
			ValueBoolean: &demographicsOnly,
		})
	}
	if params.IncludeInactivePatients {
		includeInactive := true
		parameters.Parameter = append(parameters.Parameter, fhir.ParametersParameter{
			Name:         "includeInactivePatients",
			ValueBoolean: &includeInactive,
		})
	}
	return parameters
}

// capabilityStatement is the subset of a CapabilityStatement the probe
// needs; decoding the full resource would drag in enum validation for
// fields we never look at.
type capabilityStatement struct {
	Rest []struct {
		Resource []struct {
			Type      string `json:"type"`
			Operation []struct {
				Name string `json:"name"`
			} `json:"operation"`
		} `json:"resource"`
		Operation []struct {
			Name string `json:"name"`
		} `json:"operation"`
	} `json:"rest"`
}

// SupportsResource probes GET {base}/metadata and reports whether the
// provider declares the resource and, when operationName is set, the
// operation either on the resource or system-wide.
func (c *Client) SupportsResource(ctx context.Context, p provider.Provider, resourceName, operationName string) (bool, error) {
	endpoint, err := joinPath(p.BaseURL, "metadata")
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", fhirJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("capability probe for provider %s failed: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("capability probe for provider %s returned status %d", p.Name, resp.StatusCode)
	}

	var cs capabilityStatement
	if err := json.NewDecoder(resp.Body).Decode(&cs); err != nil {
		return false, fmt.Errorf("capability probe for provider %s returned an unreadable statement: %w", p.Name, err)
	}

	op := strings.TrimPrefix(operationName, "$")
	for _, rest := range cs.Rest {
		for _, res := range rest.Resource {
			if res.Type != resourceName {
				continue
			}
			if op == "" {
				return true, nil
			}
			for _, o := range res.Operation {
				if strings.TrimPrefix(o.Name, "$") == op {
					return true, nil
				}
			}
		}
		for _, o := range rest.Operation {
			if strings.TrimPrefix(o.Name, "$") == op && op != "" {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Client) doBundle(req *http.Request, p provider.Provider) (*fhir.Bundle, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from provider %s: %w", p.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		if diag := operationOutcomeDiagnostics(body); diag != "" {
			return nil, fmt.Errorf("provider %s returned status %d: %s", p.Name, resp.StatusCode, diag)
		}
		return nil, fmt.Errorf("provider %s returned status %d", p.Name, resp.StatusCode)
	}

	var bundle fhir.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("provider %s returned an unreadable bundle: %w", p.Name, err)
	}
	return &bundle, nil
}

// operationOutcomeDiagnostics pulls the first diagnostics string out of an
// OperationOutcome error body, if that is what came back.
func operationOutcomeDiagnostics(body []byte) string {
	var outcome struct {
		ResourceType string `json:"resourceType"`
		Issue        []struct {
			Diagnostics string `json:"diagnostics"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(body, &outcome); err != nil {
		return ""
	}
	if outcome.ResourceType != "OperationOutcome" {
		return ""
	}
	for _, issue := range outcome.Issue {
		if issue.Diagnostics != "" {
			return issue.Diagnostics
		}
	}
	return ""
}

// joinPath appends raw path segments to the base URL, escaping each segment
// exactly once.
func joinPath(base string, parts ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid provider base URL %q: %w", base, err)
	}
	path := strings.TrimSuffix(u.Path, "/")
	rawPath := strings.TrimSuffix(u.EscapedPath(), "/")
	for _, part := range parts {
		path += "/" + part
		rawPath += "/" + url.PathEscape(part)
	}
	u.Path = path
	u.RawPath = rawPath
	return u.String(), nil
}
