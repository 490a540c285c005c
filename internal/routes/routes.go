package routes

import (
	"log/slog"
	"net/http"

	"facilitymonitor/internal/controller"
	"facilitymonitor/internal/metrics"
	"facilitymonitor/internal/middleware"
	"facilitymonitor/internal/models"
	"facilitymonitor/internal/utils"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Dependencies are the pieces the router is assembled from.
type Dependencies struct {
	Telemetry   *controller.TelemetryController
	Auth        *controller.AuthController
	RequireAuth func(http.Handler) http.Handler
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	CORSOrigins []string
}

// RegisterRoutes registers all application routes on router.
func RegisterRoutes(router *mux.Router, d Dependencies) {
	router.HandleFunc("/health", d.Telemetry.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", d.Telemetry.HandleReady).Methods(http.MethodGet)
	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()

	// Public
	api.HandleFunc("/login", d.Auth.HandleLogin).Methods(http.MethodPost)
	api.HandleFunc("/forgot-password", d.Auth.HandleForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/reset-password", d.Auth.HandleResetPassword).Methods(http.MethodPost)

	// Bearer token required
	secured := api.NewRoute().Subrouter()
	secured.Use(d.RequireAuth)
	secured.HandleFunc("/sensor1", d.Telemetry.HandleSensor(1)).Methods(http.MethodGet)
	secured.HandleFunc("/sensor2", d.Telemetry.HandleSensor(2)).Methods(http.MethodGet)
	secured.HandleFunc("/fire-smoke", d.Telemetry.HandleFireSmoke).Methods(http.MethodGet)
	secured.HandleFunc("/electricity", d.Telemetry.HandleElectricity).Methods(http.MethodGet)
	secured.HandleFunc("/export/{kind}", d.Telemetry.HandleExport).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound, "Route not found", nil, http.StatusNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMethodNotAllowed, "Method not allowed", nil, http.StatusMethodNotAllowed))
	})
}

// NewHandler builds the router and wraps it with CORS, access logging and
// panic recovery.
func NewHandler(d Dependencies) http.Handler {
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return d.Metrics.WrapHandler(routeTemplate, next)
	})
	RegisterRoutes(router, d)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{controller.AvailabilityHeader, middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	})

	var h http.Handler = router
	h = c.Handler(h)
	h = middleware.WrapWithLogging(d.Logger, h)
	return middleware.Recover(d.Logger)(h)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
