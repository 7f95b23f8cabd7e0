package audit

import "context"

// Sink receives audit entries. Implementations are fire-and-forget: a sink
// failure must never fail the request that produced the entry, so nothing
// is returned to the caller.
type Sink interface {
	LogInformation(ctx context.Context, eventType, auditType, title, message string)
}

// Ensure implementations satisfy Sink
var (
	_ Sink = (*Publisher)(nil)
	_ Sink = (*Recorder)(nil)
	_ Sink = Nop{}
)

type correlationKey struct{}

// WithCorrelationID stores the request correlation id for audit entries
// emitted further down the call chain.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the stored correlation id, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Nop discards all entries. Used when no broker is configured.
type Nop struct{}

func (Nop) LogInformation(context.Context, string, string, string, string) {}
