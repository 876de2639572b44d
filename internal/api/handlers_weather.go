package api

import (
	"log"
	"net/http"

	"github.com/lox/agroconnect/internal/card"
	"github.com/lox/agroconnect/internal/insight"
	"github.com/lox/agroconnect/internal/metrics"
	"github.com/lox/agroconnect/internal/models"
)

// weatherErrorMessage is the single message shown for any weather failure.
const weatherErrorMessage = "Failed to fetch weather data"

type WeatherResponse struct {
	Current models.WeatherSnapshot `json:"current"`
	Days    []models.ForecastDay   `json:"forecast"`
	Alert   string                 `json:"alert,omitempty"`
	Insight models.Insight         `json:"insight"`
}

func (s *Server) fetchWithInsight(r *http.Request) (*models.Forecast, models.Insight, bool) {
	lat, lon := coordinates(r)
	fc, err := s.weather.Fetch(r.Context(), lat, lon)
	if err != nil {
		return nil, models.Insight{}, false
	}
	in := insight.Derive(fc.Current)
	metrics.InsightsDerived.WithLabelValues(string(in.Risk)).Inc()
	return fc, in, true
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	fc, in, ok := s.fetchWithInsight(r)
	if !ok {
		writeError(w, http.StatusBadGateway, weatherErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, WeatherResponse{
		Current: fc.Current,
		Days:    fc.Days,
		Alert:   fc.Alert,
		Insight: in,
	})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.fetchWithInsight(r)
	if !ok {
		writeError(w, http.StatusBadGateway, weatherErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleWeatherCard(w http.ResponseWriter, r *http.Request) {
	fc, in, ok := s.fetchWithInsight(r)
	if !ok {
		writeError(w, http.StatusBadGateway, weatherErrorMessage)
		return
	}

	data, err := card.Render(fc.Current, in)
	if err != nil {
		log.Printf("api: render card: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to render weather card")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
