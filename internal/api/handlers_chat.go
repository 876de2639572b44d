package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/lox/agroconnect/internal/diagnosis"
)

const maxImageBytes = 10 << 20

type ChatRequest struct {
	Message string   `json:"message"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	lat, lon := resolveCoords(req.Lat, req.Lon)
	writeJSON(w, http.StatusOK, s.responder.Respond(r.Context(), req.Message, lat, lon))
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}
	if len(data) > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	d, err := s.analyzer.Analyze(r.Context(), data, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, diagnosis.ErrEmptyImage), errors.Is(err, diagnosis.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("api: diagnose: %v", err)
		writeError(w, http.StatusBadGateway, "Failed to analyze crop image")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
