package provider

import (
	"context"

	"github.com/rs/zerolog"
)

// CapabilityProbe checks whether a provider declares runtime support for a
// resource/operation pair, typically by reading its CapabilityStatement.
type CapabilityProbe interface {
	SupportsResource(ctx context.Context, p Provider, resourceName, operationName string) (bool, error)
}

// FilterSupported removes the providers that do not support the given
// operation. A probe error is never fatal to the request: the provider is
// treated as unsupported and the failure is logged with a probe_failed
// marker so silently dropped providers stay debuggable.
func FilterSupported(ctx context.Context, probe CapabilityProbe, providers []Provider, resourceName, operationName string, log zerolog.Logger) []Provider {
	// iterate in reverse so removal keeps the remaining order intact
	for i := len(providers) - 1; i >= 0; i-- {
		p := providers[i]
		supported, err := probe.SupportsResource(ctx, p, resourceName, operationName)
		if err != nil {
			log.Warn().Err(err).
				Str("provider", p.Name).
				Str("resource", resourceName).
				Str("operation", operationName).
				Bool("probe_failed", true).
				Msgf("Removing provider %s: operation not supported", p.Name)
			supported = false
		}
		if !supported {
			if err == nil {
				log.Info().
					Str("provider", p.Name).
					Str("resource", resourceName).
					Str("operation", operationName).
					Msgf("Removing provider %s: operation not supported", p.Name)
			}
			providers = append(providers[:i], providers[i+1:]...)
		}
	}
	return providers
}
