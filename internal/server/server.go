//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quebracell/backend/internal/identity"
	"github.com/quebracell/backend/internal/lifecycle"
	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/photo"
	"github.com/quebracell/backend/internal/store"
)

// Lifecycle is the negotiation core the HTTP layer drives.
type Lifecycle interface {
	Submit(ctx context.Context, sess identity.Session, req lifecycle.SubmitRequest) (string, error)
	Quote(ctx context.Context, sess identity.Session, id, amount, deadline string) error
	Respond(ctx context.Context, sess identity.Session, id string, decision lifecycle.Decision, counterOffer string) error
	MarkPaid(ctx context.Context, sess identity.Session, id string) error
	Delete(ctx context.Context, sess identity.Session, id string) error
	Get(ctx context.Context, sess identity.Session, id string) (*listing.Listing, error)
	ListAll(ctx context.Context, sess identity.Session) ([]listing.Listing, error)
	ListFor(ctx context.Context, sess identity.Session, ownerID string) ([]listing.Listing, error)
}

// SessionResolver turns request credentials into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, email, password string) (identity.Session, error)
}

type Server struct {
	service      Lifecycle
	resolver     SessionResolver
	photos       photo.Storage
	photoRoot    string
	listings     store.Store
	server       *http.Server
	AuditManager *AuditManager
}

func New(service Lifecycle, resolver SessionResolver, photos photo.Storage, photoRoot string, listings store.Store) *Server {
	auditManager := NewAuditManager(2, 5, 500*time.Millisecond)
	return &Server{
		service:      service,
		resolver:     resolver,
		photos:       photos,
		photoRoot:    photoRoot,
		listings:     listings,
		AuditManager: auditManager,
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	log.Printf("Server starting on port %s", port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	log.Println("HTTP server shutdown completed")

	s.AuditManager.Shutdown(ctx)
	log.Println("Server shutdown completed successfully")

	return nil
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler())
	if s.photoRoot != "" {
		router.PathPrefix("/photos/").Handler(
			http.StripPrefix("/photos/", http.FileServer(http.Dir(s.photoRoot))))
	}

	api := router.NewRoute().Subrouter()
	api.Use(s.auditLogMiddleware, s.basicAuthMiddleware)

	api.HandleFunc("/listings", s.handleSubmitListing).Methods(http.MethodPost)
	api.HandleFunc("/listings", s.handleListListings).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id}", s.handleGetListing).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id}", s.handleDeleteListing).Methods(http.MethodDelete)
	api.HandleFunc("/listings/{id}/quote", s.handleQuote).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/response", s.handleRespond).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/paid", s.handleMarkPaid).Methods(http.MethodPost)

	api.HandleFunc("/users/{userID}/listings", s.handleOwnerListings).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/portfolio", s.handlePortfolio).Methods(http.MethodGet)

	api.HandleFunc("/photos", s.handleUploadPhoto).Methods(http.MethodPost)
	api.HandleFunc("/ws/listings", s.handleListingsFeed).Methods(http.MethodGet)

	return router
}

type ctxKey int

const sessionKey ctxKey = iota

func sessionFrom(ctx context.Context) identity.Session {
	sess, _ := ctx.Value(sessionKey).(identity.Session)
	return sess
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		sess, err := s.resolver.Resolve(r.Context(), email, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainErr maps core errors onto HTTP statuses. NeedsMoreInput is
// not a failure: the client is told to collect the counter-offer text and
// retry.
func respondDomainErr(w http.ResponseWriter, err error) {
	var validationErr *listing.ValidationError
	var transitionErr *listing.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, "Error: "+err.Error())
	case errors.Is(err, listing.ErrNeedsMoreInput):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"needs_more_input": true,
			"prompt":           "a counter offer text is required to reject a proposal",
		})
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, "Error: "+err.Error())
	case errors.Is(err, listing.ErrNotFound):
		respondError(w, http.StatusNotFound, "Error: listing not found")
	case errors.Is(err, listing.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "Error: store unavailable, retry the action")
	default:
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
	}
}
