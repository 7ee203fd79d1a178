package opinionmap

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ProcessRequest is the wire request for POST /api/process.
type ProcessRequest struct {
	Topic               string  `json:"topic"`
	Reduction           string  `json:"reduction"`
	Mode                string  `json:"mode"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ClusterMethod       string  `json:"cluster_method"`
	ClusterCount        int     `json:"cluster_count"`
	MaxPosts            int     `json:"max_posts"`
}

// StanceRequest is the wire request for POST /api/stance. Topic is
// optional; when absent it is extracted from the statement, falling back
// to the statement itself.
type StanceRequest struct {
	Topic     string          `json:"topic"`
	Statement string          `json:"statement"`
	Points    []LabelledPoint `json:"points"`
}

// Server exposes the opinion map service over HTTP.
type Server struct {
	service       *Service
	topics        *TopicExtractor
	allowedOrigin string
}

// NewServer creates the HTTP surface around a Service. allowedOrigin is
// the CORS origin of the frontend dev server.
func NewServer(service *Service, topics *TopicExtractor, allowedOrigin string) *Server {
	return &Server{service: service, topics: topics, allowedOrigin: allowedOrigin}
}

// Handler builds the HTTP route tree with CORS applied to every request.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.cors)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/process", s.handleProcess)
		api.Post("/stance", s.handleStance)
	})

	return r
}

// cors allows the configured frontend origin on every response and
// answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Opinion Map API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	result, err := s.service.ProcessTopic(r.Context(), req.Topic, ProcessOptions{
		Reduction:           req.Reduction,
		Mode:                req.Mode,
		SimilarityThreshold: req.SimilarityThreshold,
		ClusterMethod:       req.ClusterMethod,
		ClusterCount:        req.ClusterCount,
		MaxPosts:            req.MaxPosts,
	})
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			writeError(w, http.StatusNotFound, "no opinions found for this topic")
			return
		}
		log.Printf("Error processing request: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStance(w http.ResponseWriter, r *http.Request) {
	var req StanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topic := req.Topic
	if topic == "" && s.topics != nil {
		extracted, err := s.topics.ExtractTopic(r.Context(), req.Statement)
		if err != nil {
			topic = req.Statement // verbatim fallback
		} else {
			topic = extracted
		}
	}

	result, err := s.service.AddStance(r.Context(), topic, req.Statement, req.Points)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error placing stance: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
