package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/agroconnect/internal/assistant"
	"github.com/lox/agroconnect/internal/crops"
	"github.com/lox/agroconnect/internal/diagnosis"
	"github.com/lox/agroconnect/internal/models"
	"github.com/lox/agroconnect/internal/store"
)

// Fallback coordinates used when a request does not supply a location.
const (
	FallbackLat = 51.5074
	FallbackLon = -0.1278
)

// WeatherService is the subset of the weather client the API needs.
type WeatherService interface {
	Fetch(ctx context.Context, lat, lon float64) (*models.Forecast, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store     *store.Store
	Weather   WeatherService
	Responder *assistant.Responder
	Analyzer  *diagnosis.Analyzer
	Crops     *crops.Table
}

type Server struct {
	store     *store.Store
	weather   WeatherService
	responder *assistant.Responder
	analyzer  *diagnosis.Analyzer
	crops     *crops.Table
	port      string
}

func NewServer(deps Deps, port string) *Server {
	return &Server{
		store:     deps.Store,
		weather:   deps.Weather,
		responder: deps.Responder,
		analyzer:  deps.Analyzer,
		crops:     deps.Crops,
		port:      port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/insight", s.handleInsight)
	mux.HandleFunc("GET /api/weather/card.png", s.handleWeatherCard)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/diagnose", s.handleDiagnose)
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("POST /api/posts", s.handleCreatePost)
	mux.HandleFunc("POST /api/posts/{id}/like", s.handleLikePost)
	mux.HandleFunc("POST /api/posts/{id}/share", s.handleSharePost)
	mux.HandleFunc("GET /api/profile", s.handleProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	mux.HandleFunc("GET /api/crops", s.handleCrops)
	mux.HandleFunc("GET /api/crops/{key}", s.handleCrop)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"schema_version":  version,
		"vision_analyzer": s.analyzer.Enabled(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// coordinates reads lat and lon from the query string. Missing or invalid
// values fall back to FallbackLat, FallbackLon.
func coordinates(r *http.Request) (float64, float64) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return FallbackLat, FallbackLon
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return FallbackLat, FallbackLon
	}
	return resolveCoords(&lat, &lon)
}

func resolveCoords(lat, lon *float64) (float64, float64) {
	if lat == nil || lon == nil || !inRange(*lat, 90) || !inRange(*lon, 180) {
		return FallbackLat, FallbackLon
	}
	return *lat, *lon
}

// inRange reports whether v is a number within [-limit, limit]. NaN fails.
func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
