package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/access"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/audit"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/clock"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/config"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/consumer"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/fhirclient"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/gateway"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/pds"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/provider"
	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/telemetry"
)

// Deps carries everything the router needs to assemble the service graph.
type Deps struct {
	DB       *sqlx.DB
	Verifier *auth.Verifier
	Perms    auth.Permissions
	Audit    audit.Sink
	Clock    clock.Clock
	Metrics  *telemetry.Metrics
	Cfg      config.Config
	Log      zerolog.Logger
}

// SetupRouter initializes all routes for the application
func SetupRouter(d Deps) *mux.Router {
	// Provider registry components
	providerRepo := provider.NewRepository(d.DB)
	providerService := provider.NewService(providerRepo, d.Log)
	providerHandler := provider.NewHandler(providerService)

	// Access gate components
	consumerRepo := consumer.NewRepository(d.DB)
	pdsRepo := pds.NewRepository(d.DB)
	gate := access.NewGate(consumerRepo, pdsRepo, d.Audit, d.Clock, d.Cfg.RequiredRole, d.Log)

	// A nil *telemetry.Metrics must become a nil interface, not a typed nil.
	var gatewayMetrics gateway.MetricsRecorder
	var authMetrics auth.MetricsRecorder
	if d.Metrics != nil {
		gatewayMetrics = d.Metrics
		authMetrics = d.Metrics
	}

	// Aggregation pipeline components
	client := fhirclient.New(d.Log)
	executor := gateway.NewExecutor(d.Cfg.MaxProviderWaitTime, d.Log)
	reconciler := gateway.NewPrimaryFirstReconciler(d.Clock, d.Log)
	gatewayService := gateway.NewService(
		providerRepo, gate, client, client, executor, reconciler,
		d.Audit, d.Clock, gatewayMetrics, d.Cfg.FhirVersion, d.Log,
	)
	gatewayHandler := gateway.NewHandler(gatewayService, d.Log)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fhir-gateway-service"))
	r.Use(CORSMiddleware)

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"fhir-gateway-service"}`))
	}).Methods("GET")

	authed := auth.MiddlewareWithMetrics(d.Verifier, authMetrics)

	// Patient record aggregation. The access gate performs the
	// consumer/organisation checks; the middleware only establishes identity.
	r.Handle("/fhir/Patient/{id}/$everything",
		authed(http.HandlerFunc(gatewayHandler.Everything)),
	).Methods("GET")

	r.Handle("/fhir/Patient/$gpc.getstructuredrecord",
		authed(http.HandlerFunc(gatewayHandler.GetStructuredRecord)),
	).Methods("POST")

	// Provider registry administration
	r.Handle("/admin/providers",
		authed(auth.RequirePermission("provider:manage", d.Perms)(
			http.HandlerFunc(providerHandler.CreateProvider),
		)),
	).Methods("POST")

	r.Handle("/admin/providers",
		authed(auth.RequirePermission("provider:view", d.Perms)(
			http.HandlerFunc(providerHandler.ListProviders),
		)),
	).Methods("GET")

	r.Handle("/admin/providers/{id}",
		authed(auth.RequirePermission("provider:view", d.Perms)(
			http.HandlerFunc(providerHandler.GetProvider),
		)),
	).Methods("GET")

	r.Handle("/admin/providers/{id}",
		authed(auth.RequirePermission("provider:manage", d.Perms)(
			http.HandlerFunc(providerHandler.UpdateProvider),
		)),
	).Methods("PUT")

	r.Handle("/admin/providers/{id}",
		authed(auth.RequirePermission("provider:manage", d.Perms)(
			http.HandlerFunc(providerHandler.DeactivateProvider),
		)),
	).Methods("DELETE")

	return r
}
