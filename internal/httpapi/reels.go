package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"showroom/internal/catalog"
)

func (s *Server) handleGetReel(w http.ResponseWriter, r *http.Request) {
	reel, err := s.deps.Catalog.Reel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reel)
}

func (s *Server) handleSaveReel(w http.ResponseWriter, r *http.Request) {
	var reel catalog.Reel
	if err := decodeJSON(w, r, &reel); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	reel.ID = chi.URLParam(r, "id")
	saved, err := s.deps.Catalog.SaveReel(r.Context(), reel)
	if err != nil {
		respondError(w, err)
		return
	}
	s.log.Info().Str("reel", saved.ID).Int("items", len(saved.Items)).Msg("reel saved")
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteReel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Catalog.DeleteReel(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	s.log.Info().Str("reel", id).Msg("reel deleted")
	w.WriteHeader(http.StatusNoContent)
}
