// Package api serves the indicator pages and their AJAX endpoints.
//
//	@title			CRITs Indicators API
//	@version		1.0
//	@description	Indicator pages and the AJAX endpoints behind them
//
// @license.name	MIT
// @license.url	https://opensource.org/licenses/MIT
//
// @host		localhost:8080
// @BasePath	/
// @securityDefinitions.apikey	ApiKeyAuth
// @in							header
// @name						Authorization
// @description				Bearer token minted by "indicators token"
package api

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/0x3a/crits/config"
	"github.com/0x3a/crits/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// authFailureEntry holds auth failure count and last failure time
type authFailureEntry struct {
	count    int
	lastFail time.Time
}

// HealthChecker reports whether the storage backend is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	service        *service.IndicatorService
	health         HealthChecker
	config         *config.Config
	logger         *zap.SugaredLogger
	validate       *validator.Validate
	templates      *template.Template
	policy         *bluemonday.Policy
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	authFailures   map[string]*authFailureEntry
	authFailuresMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewAPI creates a new API server. Panics if a dependency is missing or the
// embedded templates do not parse.
func NewAPI(svc *service.IndicatorService, health HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) *API {
	if svc == nil {
		panic("indicator service is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	api := &API{
		router:       mux.NewRouter(),
		service:      svc,
		health:       health,
		config:       cfg,
		logger:       logger,
		validate:     newFormValidator(),
		templates:    template.Must(parseTemplates()),
		policy:       bluemonday.UGCPolicy(),
		rateLimiters: make(map[string]*rateLimiterEntry),
		authFailures: make(map[string]*authFailureEntry),
		stopCh:       make(chan struct{}),
	}
	api.setupRoutes()
	api.server = api.newServer()
	go api.cleanupRateLimiters()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.loggingMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())

	ind := a.router.PathPrefix("/indicators").Subrouter()
	ind.Use(a.authMiddleware)

	ind.HandleFunc("/details/{id}/", a.instrument("indicator", a.indicator)).Methods("GET")
	ind.HandleFunc("/list/", a.instrument("indicators_listing", a.indicatorsListing)).Methods("GET", "POST")
	ind.HandleFunc("/list/{option}/", a.instrument("indicators_listing", a.indicatorsListing)).Methods("GET", "POST")
	ind.HandleFunc("/add_action/", a.instrument("new_indicator_action", a.newIndicatorAction))
	ind.HandleFunc("/remove/{id}/", a.instrument("remove_indicator", a.removeIndicator)).Methods("GET", "POST")
	ind.HandleFunc("/search/", a.instrument("indicator_search", a.indicatorSearch)).Methods("GET")
	ind.HandleFunc("/upload/", a.instrument("upload_indicator", a.uploadIndicator))
	ind.HandleFunc("/type/{id}/", a.instrument("update_indicator_type", a.updateIndicatorType))
	ind.HandleFunc("/actions/remove/{id}/", a.instrument("remove_action", a.removeAction))
	ind.HandleFunc("/actions/{method:add|update}/{id}/", a.instrument("add_update_action", a.addUpdateAction))
	ind.HandleFunc("/activity/remove/{id}/", a.instrument("remove_activity", a.removeActivity))
	ind.HandleFunc("/activity/{method:add|update}/{id}/", a.instrument("add_update_activity", a.addUpdateActivity))
	ind.HandleFunc("/ci/update/{id}/{ci_type:confidence|impact}/", a.instrument("update_ci", a.updateCI))
	ind.HandleFunc("/and_ip/", a.instrument("indicator_and_ip", a.indicatorAndIP))
	ind.HandleFunc("/from_obj/", a.instrument("indicator_from_tlo", a.indicatorFromTLO))

	// Swagger UI
	a.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}

// ServeHTTP makes the API usable as an http.Handler
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) newServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.API.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.API.ReadTimeout,
		WriteTimeout: a.config.API.WriteTimeout,
	}
}

// Start starts the API server, with TLS when configured
func (a *API) Start() error {
	if a.config.API.TLS {
		return a.server.ListenAndServeTLS(a.config.API.CertFile, a.config.API.KeyFile)
	}
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// healthCheck reports storage reachability
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := a.health.HealthCheck(ctx); err != nil {
			a.logger.Warnw("Health check failed", "error", err)
			status = map[string]string{"status": "unavailable"}
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status, a.logger)
}
