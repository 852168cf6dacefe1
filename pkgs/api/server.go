// Package api exposes the HTTP surface: submission intake, completion
// status, the achievement listing, and the health check.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/metrics"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/router"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
)

// Server provides the HTTP API for the achievement service.
type Server struct {
	router  *router.Router
	catalog *catalog.Registry
	redis   *redis.Client
}

// NewServer creates a new API server. redisClient may be nil when the
// service runs with the in-memory store; the health check degrades
// accordingly.
func NewServer(r *router.Router, c *catalog.Registry, redisClient *redis.Client) *Server {
	return &Server{
		router:  r,
		catalog: c,
		redis:   redisClient,
	}
}

// Router creates the HTTP router with all endpoints
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/submissions", s.handleSubmit).Methods("POST")
	api.HandleFunc("/completions/{wallet}/{achievement}", s.handleCompletion).Methods("GET")
	api.HandleFunc("/achievements", s.handleListAchievements).Methods("GET")
	api.HandleFunc("/health", s.handleHealthCheck).Methods("GET")

	// Add middleware for metrics
	r.Use(s.metricsMiddleware)

	// Add CORS middleware
	r.Use(s.corsMiddleware)

	return r
}

// metricsMiddleware tracks API request metrics
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(r.URL.Path).Observe(duration)
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleSubmit accepts an achievement submission and runs it through the
// validation pipeline.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissions.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONStatus(w, http.StatusBadRequest, &submissions.SubmitResponse{
			Success: false,
			Error:   "malformed request body",
			Code:    submissions.CodeInvalidRequest,
		})
		return
	}

	resp := s.router.Submit(r.Context(), &req)
	s.writeJSONStatus(w, statusForResponse(resp), resp)
}

// statusForResponse maps pipeline error codes onto HTTP status codes. A
// failed-but-valid attempt is still a 200: the grading outcome is data,
// not a transport error.
func statusForResponse(resp *submissions.SubmitResponse) int {
	switch resp.Code {
	case "":
		return http.StatusOK
	case submissions.CodeAlreadyCompleted:
		return http.StatusConflict
	case submissions.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// handleCompletion returns voucher state and attempt history for a
// wallet+achievement pair.
func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wallet := vars["wallet"]
	achievement := vars["achievement"]

	status, err := s.router.Status(r.Context(), wallet, achievement)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, status)
}

// handleListAchievements returns the achievement catalog.
func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.All()

	type entry struct {
		ID           string       `json:"id"`
		Title        string       `json:"title"`
		TaskCode     int64        `json:"taskCode"`
		Kind         catalog.Kind `json:"kind"`
		PassingScore float64      `json:"passingScore,omitempty"`
	}

	entries := make([]entry, 0, len(all))
	for _, a := range all {
		entries = append(entries, entry{
			ID:           a.ID,
			Title:        a.Title,
			TaskCode:     a.TaskCode,
			Kind:         a.Kind,
			PassingScore: a.PassingScore,
		})
	}

	s.writeJSON(w, map[string]interface{}{
		"count":        len(entries),
		"achievements": entries,
	})
}

// handleHealthCheck returns service health status
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			s.writeJSON(w, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"status":       "healthy",
		"achievements": len(s.catalog.All()),
		"timestamp":    time.Now().Unix(),
	})
}

// writeJSON writes JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}
