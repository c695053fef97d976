package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garnizeh/terapia/internal/analytics"
	"github.com/garnizeh/terapia/internal/auth"
	"github.com/garnizeh/terapia/internal/availability"
	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/messaging"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/internal/specialists"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/payments"
	"github.com/garnizeh/terapia/pkg/repository"
)

// Deps carries everything the router hands to its handlers. Assistant,
// Payments, Uploads and Files are optional.
type Deps struct {
	DB            Pinger
	Assistant     HealthChecker
	Profiles      repository.ProfileRepo
	Auth          *auth.Service
	Sessions      *sessions.Service
	Specialists   *specialists.Service
	Availability  *availability.Service
	Messaging     *messaging.Service
	Notifications *notifications.Service
	Dispatcher    *notifications.Dispatcher
	Analytics     *analytics.Service
	Payments      *payments.Client
	Feed          Feed
	Uploads       Uploader
	Files         http.Handler
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{DB: deps.DB, Assistant: deps.Assistant}
	authHandler := NewAuthHandler(deps.Auth)
	profileHandler := NewProfileHandler(deps.Profiles, deps.Uploads)
	sessionHandler := NewSessionHandler(deps.Sessions, deps.Profiles)
	specialistHandler := NewSpecialistHandler(deps.Specialists, deps.Availability, deps.Uploads)
	messageHandler := NewMessageHandler(deps.Messaging)
	notificationHandler := NewNotificationHandler(deps.Notifications)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Sessions)
	streamHandler := NewStreamHandler(deps.Feed)
	adminHandler := NewAdminHandler(deps.Analytics, deps.Notifications, deps.Dispatcher, deps.Sessions, deps.Profiles, cfg.Dispatch.Timeout)

	// Preflight requests reach the CORS middleware through this route. It must not
	// use a method matcher or unknown paths would answer 405.
	r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return req.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/specialists", specialistHandler.List).Methods("GET")
	r.HandleFunc("/v1/specialists/search", specialistHandler.Search).Methods("GET")
	r.HandleFunc("/v1/specialists/{id}", specialistHandler.Get).Methods("GET")
	r.HandleFunc("/v1/specialists/{id}/availability", specialistHandler.Availability).Methods("GET")
	if deps.Files != nil {
		r.PathPrefix("/storage/").Handler(http.StripPrefix("/storage/", deps.Files)).Methods("GET")
	}

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(AuthMiddleware(deps.Auth))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")
	authV1.HandleFunc("/session", authHandler.Session).Methods("GET")

	// Profile endpoints
	apiV1.HandleFunc("/profiles/me", profileHandler.UpdateMe).Methods("PUT")
	apiV1.HandleFunc("/profiles/me/avatar", profileHandler.UploadAvatar).Methods("POST")

	// Session endpoints
	apiV1.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	apiV1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST")
	apiV1.HandleFunc("/sessions/count", sessionHandler.Count).Methods("GET")
	apiV1.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET")
	apiV1.HandleFunc("/sessions/{id}", sessionHandler.Update).Methods("PATCH")
	apiV1.HandleFunc("/sessions/{id}", sessionHandler.Delete).Methods("DELETE")
	apiV1.HandleFunc("/sessions/{id}/cancel", sessionHandler.Cancel).Methods("POST")
	apiV1.HandleFunc("/sessions/{id}/invite", sessionHandler.Invite).Methods("POST")
	apiV1.HandleFunc("/sessions/{id}/feedback", sessionHandler.Feedback).Methods("POST")
	apiV1.HandleFunc("/sessions/{id}/payments", sessionHandler.RecordPayment).Methods("POST")
	apiV1.HandleFunc("/sessions/{id}/payments", sessionHandler.ListPayments).Methods("GET")

	// Specialist self-service
	apiV1.HandleFunc("/specialists/register", specialistHandler.Register).Methods("POST")
	selfV1 := apiV1.PathPrefix("/specialists/me").Subrouter()
	selfV1.Use(RequireRole(models.RoleSpecialist, models.RoleAdmin))
	selfV1.HandleFunc("/details", specialistHandler.UpdateDetails).Methods("PUT")
	selfV1.HandleFunc("/thumbnail", specialistHandler.UploadThumbnail).Methods("POST")
	selfV1.HandleFunc("/availability", specialistHandler.SaveAvailability).Methods("PUT")
	selfV1.HandleFunc("/availability/{day:[0-9]+}", specialistHandler.SaveAvailabilityDay).Methods("PUT")

	// Message endpoints
	apiV1.HandleFunc("/messages/conversations", messageHandler.Conversations).Methods("GET")
	apiV1.HandleFunc("/messages/{counterpart}", messageHandler.Thread).Methods("GET")
	apiV1.HandleFunc("/messages/{counterpart}", messageHandler.Send).Methods("POST")
	apiV1.HandleFunc("/messages/{counterpart}/read", messageHandler.MarkRead).Methods("POST")

	// Notification endpoints
	apiV1.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	apiV1.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCount).Methods("GET")
	apiV1.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("POST")
	apiV1.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("POST")

	// Payment endpoints
	apiV1.HandleFunc("/payments/checkout", paymentHandler.Checkout).Methods("POST")
	apiV1.HandleFunc("/payments/subscription", paymentHandler.Subscription).Methods("POST")
	apiV1.HandleFunc("/payments/process", paymentHandler.Process).Methods("POST")

	// Change feed
	apiV1.HandleFunc("/realtime/stream", streamHandler.Stream).Methods("GET")

	// Admin endpoints
	adminV1 := apiV1.PathPrefix("/admin").Subrouter()
	adminV1.Use(RequireRole(models.RoleAdmin))
	adminV1.HandleFunc("/analytics", adminHandler.Analytics).Methods("GET")
	adminV1.HandleFunc("/notifications", adminHandler.Broadcast).Methods("POST")
	adminV1.HandleFunc("/notifications/dispatch", adminHandler.Dispatch).Methods("POST")
	adminV1.HandleFunc("/sessions/{id}", adminHandler.DeleteSession).Methods("DELETE")
	adminV1.HandleFunc("/messages/{user}/rebuild", messageHandler.Rebuild).Methods("POST")

	return r
}
