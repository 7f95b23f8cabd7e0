package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/validation"
)

// Service carries the admin operations on the provider registry.
type Service struct {
	repo RepositoryInterface
	log  zerolog.Logger
}

func NewService(repo RepositoryInterface, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListResult is one page of providers plus pagination metadata.
type ListResult struct {
	Providers []Provider      `json:"providers"`
	Meta      pagination.Meta `json:"meta"`
}

func (s *Service) ListProviders(ctx context.Context, params pagination.Params, status string) (*ListResult, error) {
	providers, total, err := s.repo.ListProviders(ctx, params.Limit, params.Offset(), status)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	if providers == nil {
		providers = []Provider{}
	}
	return &ListResult{Providers: providers, Meta: params.MetaFor(total)}, nil
}

func (s *Service) GetProvider(ctx context.Context, id string) (*Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

func (s *Service) CreateProvider(ctx context.Context, req CreateProviderRequest, createdBy string) (*Provider, error) {
	if err := validation.Evaluate(
		validation.Rule{Field: "name", Message: "provider name is required", Failed: req.Name == ""},
		validation.Rule{Field: "fhir_version", Message: "FHIR version is required", Failed: req.FhirVersion == ""},
		validation.Rule{Field: "base_url", Message: "base URL must be a valid absolute URL", Failed: !validBaseURL(req.BaseURL)},
		validation.Rule{Field: "system", Message: "coding system is required", Failed: req.System == ""},
		validation.Rule{Field: "code", Message: "coding code is required", Failed: req.Code == ""},
		validation.Rule{Field: "active_window", Message: "active_from must not be after active_to",
			Failed: req.ActiveFrom != nil && req.ActiveTo != nil && req.ActiveFrom.After(*req.ActiveTo)},
	); err != nil {
		return nil, err
	}

	p, err := s.repo.CreateProvider(ctx, req, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	s.log.Info().Str("provider", p.Name).Str("id", p.ID).Bool("primary", p.IsPrimary).Msg("provider registered")
	return p, nil
}

func (s *Service) UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest, updatedBy string) (*Provider, error) {
	if err := validation.Evaluate(
		validation.Rule{Field: "id", Message: "provider id is required", Failed: id == ""},
		validation.Rule{Field: "base_url", Message: "base URL must be a valid absolute URL",
			Failed: req.BaseURL != nil && !validBaseURL(*req.BaseURL)},
	); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdateProvider(ctx, id, req, updatedBy)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("provider", p.Name).Str("id", p.ID).Msg("provider updated")
	return p, nil
}

func (s *Service) DeactivateProvider(ctx context.Context, id, updatedBy string) error {
	if err := s.repo.DeactivateProvider(ctx, id, updatedBy); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("provider deactivated")
	return nil
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ServiceInterface defines the contract for provider registry administration
type ServiceInterface interface {
	ListProviders(ctx context.Context, params pagination.Params, status string) (*ListResult, error)
	GetProvider(ctx context.Context, id string) (*Provider, error)
	CreateProvider(ctx context.Context, req CreateProviderRequest, createdBy string) (*Provider, error)
	UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest, updatedBy string) (*Provider, error)
	DeactivateProvider(ctx context.Context, id, updatedBy string) error
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
