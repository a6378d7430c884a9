// Package chi exposes the HTTP API over a go-chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/domain/geo"
	domprofile "github.com/busantable/busantable/internal/domain/profile"
	"github.com/busantable/busantable/internal/domain/restaurant"
	"github.com/busantable/busantable/internal/usecase/browse"
	chatuc "github.com/busantable/busantable/internal/usecase/chat"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// HealthChecker verifies an external dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the usecase services into HTTP handlers.
type Server struct {
	browse        *browse.Service
	recommend     *recommend.Service
	quality       *quality.Engine
	chat          *chatuc.Service
	store         Pinger
	provider      HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	browseSvc *browse.Service,
	recommendSvc *recommend.Service,
	qualityEngine *quality.Engine,
	chatSvc *chatuc.Service,
	store Pinger,
	provider HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		browse:    browseSvc,
		recommend: recommendSvc,
		quality:   qualityEngine,
		chat:      chatSvc,
		store:     store,
		provider:  provider,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidAction, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, CodeCatalogDown),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrChatProviderError, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// Routes mounts all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/restaurants", s.ListRestaurants)
		r.Get("/restaurants/near", s.ListNearby)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/actions", s.RecordAction)
			r.Get("/recommendations", s.Recommendations)
			r.Get("/similar", s.SimilarUsers)
		})
		r.Post("/quality/report", s.QualityReport)
		r.Post("/quality/cleaned", s.QualityCleaned)
		r.Post("/chat", s.Chat)
	})
}

// ListRestaurants handles GET /api/v1/restaurants.
func (s *Server) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	q := browse.Query{
		Keyword:  r.URL.Query().Get("keyword"),
		Area:     r.URL.Query().Get("area"),
		Category: r.URL.Query().Get("category"),
		Price:    browse.Bucket(r.URL.Query().Get("price")),
	}
	if raw := r.URL.Query().Get("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "min_rating must be a number")
			return
		}
		q.MinRating = v
	}

	records, err := s.browse.Filter(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListNearby handles GET /api/v1/restaurants/near.
func (s *Server) ListNearby(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "lat and lng are required numbers")
		return
	}

	radius := 1000.0
	if raw := r.URL.Query().Get("radius_m"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "radius_m must be a number")
			return
		}
		radius = v
	}

	nearby, err := s.browse.Near(r.Context(), geo.Point{Latitude: lat, Longitude: lng}, radius)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nearby)
}

// RecordAction handles POST /api/v1/users/{userID}/actions.
func (s *Server) RecordAction(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var action domprofile.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.recommend.RecordAction(r.Context(), userID, action); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	records, err := s.browse.Filter(r.Context(), browse.Query{})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ranked, err := s.recommend.Rank(r.Context(), userID, records, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// SimilarUsers handles GET /api/v1/users/{userID}/similar.
func (s *Server) SimilarUsers(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	neighbors, err := s.recommend.SimilarUsers(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, neighbors)
}

// QualityReport handles POST /api/v1/quality/report.
func (s *Server) QualityReport(w http.ResponseWriter, r *http.Request) {
	records, ok := decodeRecords(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.quality.Analyze(records))
}

// QualityCleaned handles POST /api/v1/quality/cleaned.
func (s *Server) QualityCleaned(w http.ResponseWriter, r *http.Request) {
	records, ok := decodeRecords(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.quality.BuildCleaned(records))
}

func decodeRecords(w http.ResponseWriter, r *http.Request) ([]restaurant.Restaurant, bool) {
	var records []restaurant.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	return records, true
}

// chatRequest is the POST /api/v1/chat body.
type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id and message are required")
		return
	}

	reply, err := s.chat.Converse(r.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// healthResponse reports per-dependency status.
type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Provider string `json:"provider"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok", Provider: "ok"}
	status := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status, resp.Store = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.provider != nil {
		if err := s.provider.HealthCheck(r.Context()); err != nil {
			// The chat shim degrades to canned replies, so a provider
			// outage does not fail the whole service.
			resp.Status, resp.Provider = "degraded", err.Error()
		}
	}

	writeJSON(w, status, resp)
}
