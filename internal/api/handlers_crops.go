package api

import (
	"net/http"
)

// handleCrops lists the crop guide, optionally filtered by ?category=.
func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.crops.ByCategory(r.URL.Query().Get("category")))
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	info, ok := s.crops.Get(r.PathValue("key"))
	if !ok {
		writeError(w, http.StatusNotFound, "crop not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
