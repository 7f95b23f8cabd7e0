package provider

import "context"

// RepositoryInterface defines the contract for provider registry data access
type RepositoryInterface interface {
	RetrieveAllProviders(ctx context.Context) ([]Provider, error)
	ListProviders(ctx context.Context, limit, offset int, status string) ([]Provider, int, error)
	GetProvider(ctx context.Context, id string) (*Provider, error)
	CreateProvider(ctx context.Context, req CreateProviderRequest, createdBy string) (*Provider, error)
	UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest, updatedBy string) (*Provider, error)
	DeactivateProvider(ctx context.Context, id, updatedBy string) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
