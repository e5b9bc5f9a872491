package routes

import (
	"net/http"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/config"
	"serviceinfo/internal/handlers"
	"serviceinfo/internal/logger"
	"serviceinfo/internal/metrics"
	mdlwr "serviceinfo/internal/middleware"
	"serviceinfo/internal/notify"
	"serviceinfo/internal/repository"
	"serviceinfo/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the long-lived collaborators the router wires into services.
// Jira may be nil; the router then builds one that never calls a tracker.
// The caller owns Jira and should Wait on it after the server stops.
type Deps struct {
	Store    repository.Store
	JWT      *auth.JWTManager
	Notifier notify.Notifier
	Jira     *services.JiraService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jiraSvc := deps.Jira
	if jiraSvc == nil {
		jiraSvc = services.NewJiraService(deps.Store, nil, cfg.SiteURL, cfg.TicketSyncConcurrency, deps.Metrics, logr.Component("jira"))
	}
	recordSvc := services.NewServiceRecordService(deps.Store, deps.Notifier, jiraSvc, deps.Metrics, logr.Component("services"))
	areaSvc := services.NewServiceAreaService(deps.Store, logr.Component("areas"))
	providerSvc := services.NewProviderService(deps.Store, deps.Notifier, deps.Metrics, logr.Component("providers"))
	referenceSvc := services.NewReferenceService(deps.Store)
	authSvc := services.NewAuthService(deps.Store, deps.JWT, cfg, deps.Notifier, logr.Component("auth"))

	// create the auth middleware instance (pass dependencies)
	authMW := mdlwr.NewAuthMiddleware(deps.JWT, authSvc, providerSvc, logr.Component("auth"))

	authHandler := handlers.NewAuthHandler(authSvc, logr.Component("auth"), cfg)
	recordHandler := handlers.NewServiceRecordHandler(recordSvc, areaSvc, cfg.SiteURL, logr.Component("services"))
	areaHandler := handlers.NewServiceAreaHandler(areaSvc, cfg.SiteURL, logr.Component("areas"))
	providerHandler := handlers.NewProviderHandler(providerSvc, cfg.SiteURL, logr.Component("providers"))
	referenceHandler := handlers.NewReferenceHandler(referenceSvc, cfg.SiteURL, logr.Component("reference"))
	jiraHandler := handlers.NewJiraHandler(jiraSvc, cfg.TicketSyncBatch, logr.Component("jira"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mdlwr.Locale)

		r.Route("/auth", func(r chi.Router) {
			// Public routes
			r.Post("/login", authHandler.LoginLocal)
			r.Post("/login/ldap", authHandler.LoginLDAP)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/activate", authHandler.Activate)
			r.Post("/resend-activation", authHandler.ResendActivation)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		// Public directory
		r.Get("/services", recordHandler.List)
		r.Get("/services/{id}", recordHandler.Get)
		r.Get("/providers", providerHandler.List)
		r.Post("/providers", providerHandler.Register)
		r.Get("/providers/{id}", providerHandler.Get)
		r.Get("/service-areas", areaHandler.GetServiceAreas)
		r.Get("/service-areas/containing", areaHandler.Containing)
		r.Get("/service-areas/{id}", areaHandler.GetServiceAreaByID)
		r.Get("/service-types", referenceHandler.ServiceTypes)
		r.Get("/service-types/{id}", referenceHandler.ServiceType)
		r.Get("/provider-types", referenceHandler.ProviderTypes)
		r.Get("/provider-types/{id}", referenceHandler.ProviderType)

		r.Route("/provider", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Use(authMW.RequireProvider)
			r.Get("/profile", providerHandler.Profile)
			r.Put("/profile", providerHandler.UpdateProfile)
			r.Get("/services", recordHandler.ListMine)
			r.Post("/services", recordHandler.Create)
			r.Get("/services/{id}", recordHandler.GetMine)
			r.Post("/services/{id}/cancel", recordHandler.Cancel)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Use(authMW.RequireRole(cfg.StaffRole))
			r.Get("/services/pending", recordHandler.ListPending)
			r.Get("/services/{id}", recordHandler.GetAny)
			r.Post("/services/{id}/approve", recordHandler.Approve)
			r.Post("/services/{id}/reject", recordHandler.Reject)
			r.Get("/services/{id}/audit", recordHandler.AuditTrail)
			r.Post("/service-areas", areaHandler.Create)
			r.Post("/jira-records/sync", jiraHandler.SyncPending)
			r.Post("/jira-records/{id}/sync", jiraHandler.SyncOne)
		})
	})

	return r
}
