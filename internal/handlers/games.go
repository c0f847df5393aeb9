package handlers

import "net/http"

// ListGamesHandler returns the playable game catalog.
func (s *Server) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	games, err := s.Catalog.ListGames(r.Context())
	if err != nil {
		s.Logger.Errorf("failed to list games: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to load games")
		return
	}
	writeJSON(w, http.StatusOK, games)
}
