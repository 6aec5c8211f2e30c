package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/buildinfo"
	"github.com/palletor/ucpwms/internal/config"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/middleware"
	"github.com/palletor/ucpwms/internal/services/composition"
	"github.com/palletor/ucpwms/internal/services/packaging"
	"github.com/palletor/ucpwms/internal/services/picking"
	"github.com/palletor/ucpwms/internal/services/stock"
	"github.com/palletor/ucpwms/internal/services/ucp"
	"github.com/palletor/ucpwms/internal/websocket"
)

// Services groups the core services the router exposes.
type Services struct {
	Packaging   *packaging.Service
	Stock       *stock.Service
	Picking     *picking.Service
	Composition *composition.Service
	Ucp         *ucp.Service
}

// Router wraps the mux router, the database and the core services
type Router struct {
	*mux.Router
	db       *database.DB
	cfg      *config.Config
	services Services
	hub      *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, services Services, hub *websocket.Hub) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		cfg:      cfg,
		services: services,
		hub:      hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// Event feed
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(r.hub, w, req)
	})

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	// Ucp lifecycle
	api.HandleFunc("/ucps", r.listUcps).Methods("GET")
	api.HandleFunc("/ucps", r.createUcp).Methods("POST")
	api.HandleFunc("/ucps/{id}", r.getUcp).Methods("GET")
	api.HandleFunc("/ucps/{id}/move", r.moveUcp).Methods("POST")
	api.HandleFunc("/ucps/{id}/dismantle", r.dismantleUcp).Methods("POST")
	api.HandleFunc("/ucps/{id}/reactivate", r.reactivateUcp).Methods("POST")
	api.HandleFunc("/ucps/{id}/history", r.getUcpHistory).Methods("GET")
	api.HandleFunc("/ucps/{id}/items", r.addUcpItem).Methods("POST")
	api.HandleFunc("/ucps/{id}/label", r.getUcpLabel).Methods("GET")
	api.HandleFunc("/items/{id}", r.removeUcpItem).Methods("DELETE")

	// Transfers
	api.HandleFunc("/transfers", r.transferItem).Methods("POST")

	// Packaging hierarchy
	api.HandleFunc("/products/{id}/packaging", r.getPackagingHierarchy).Methods("GET")
	api.HandleFunc("/products/{id}/packaging", r.addPackagingType).Methods("POST")
	api.HandleFunc("/packaging/{id}", r.removePackagingType).Methods("DELETE")

	// Stock views and picking
	api.HandleFunc("/products/{id}/stock", r.getStock).Methods("GET")
	api.HandleFunc("/products/{id}/picking-plan", r.getPickingPlan).Methods("GET")

	// Composition
	api.HandleFunc("/compositions/validate", r.validateComposition).Methods("POST")
	api.HandleFunc("/compositions/optimize", r.optimizeComposition).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"startTime":  buildinfo.StartTime,
		"buildTime":  buildinfo.BuildTime,
		"commitHash": buildinfo.CommitHash,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps the core error taxonomy onto HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch appErr.Kind {
	case apperr.KindValidation:
		respondError(w, http.StatusBadRequest, appErr.Message)
	case apperr.KindNotFound:
		respondError(w, http.StatusNotFound, appErr.Message)
	case apperr.KindConflict:
		respondError(w, http.StatusConflict, appErr.Message)
	default:
		// Storage errors stay opaque to clients
		respondError(w, http.StatusInternalServerError, "storage error")
	}
}
