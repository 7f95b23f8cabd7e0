package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/apperrors"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
)

// Outcome pairs one provider call with either its bundle or its error.
// It only lives for the duration of a fan-out.
type Outcome struct {
	Provider provider.Provider
	Bundle   *fhir.Bundle
	Err      error
}

// QueryFunc performs one provider call under the given context.
type QueryFunc func(ctx context.Context, p provider.Provider) (*fhir.Bundle, error)

// Executor fans a query out to every selected provider concurrently. Each
// call runs under its own timeout derived from the caller's context, so one
// slow or failed provider never blocks or aborts a sibling. Successful
// bundles are tagged with their provider's source metadata before they are
// returned.
type Executor struct {
	maxWait time.Duration
	log     zerolog.Logger
}

// NewExecutor builds an executor with the per-provider wait budget.
// A zero or negative budget disables the per-call timeout.
func NewExecutor(maxWait time.Duration, log zerolog.Logger) *Executor {
	return &Executor{maxWait: maxWait, log: log}
}

// ExecuteAll runs query once per provider and waits for every outcome.
// It never returns an error itself; failures are captured per outcome.
func (e *Executor) ExecuteAll(ctx context.Context, providers []provider.Provider, query QueryFunc) []Outcome {
	outcomes := make([]Outcome, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			outcomes[i] = e.execute(ctx, p, query)
		}(i, p)
	}
	wg.Wait()

	return outcomes
}

func (e *Executor) execute(ctx context.Context, p provider.Provider, query QueryFunc) Outcome {
	// cancelled before the call started: don't even attempt it
	if err := ctx.Err(); err != nil {
		return Outcome{Provider: p, Err: err}
	}

	callCtx := ctx
	cancel := func() {}
	if e.maxWait > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.maxWait)
	}
	defer cancel()

	start := time.Now()
	bundle, err := query(callCtx, p)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			// the caller cancelled the whole request: propagate as-is
			err = ctx.Err()
		case callCtx.Err() == context.DeadlineExceeded:
			err = apperrors.Wrap(apperrors.KindTimeout,
				"provider "+p.Name+" exceeded the "+e.maxWait.String()+" wait budget", err)
		}
		e.log.Warn().Err(err).Str("provider", p.Name).Dur("elapsed", elapsed).Msg("provider query failed")
		return Outcome{Provider: p, Err: err}
	}

	TagBundle(bundle, p)
	e.log.Debug().Str("provider", p.Name).Dur("elapsed", elapsed).Msg("provider query succeeded")
	return Outcome{Provider: p, Bundle: bundle}
}

// Partition splits outcomes into the successful bundles and one aggregate
// error covering every failure. The aggregate is nil when nothing failed.
func Partition(outcomes []Outcome) ([]*fhir.Bundle, *apperrors.AggregateError) {
	var bundles []*fhir.Bundle
	var failures []apperrors.ProviderError
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, apperrors.ProviderError{Provider: o.Provider.Name, Err: o.Err})
			continue
		}
		if o.Bundle != nil {
			bundles = append(bundles, o.Bundle)
		}
	}
	if len(failures) == 0 {
		return bundles, nil
	}
	return bundles, &apperrors.AggregateError{Errors: failures}
}
