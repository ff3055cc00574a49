package httpapi

import (
	"net/http"

	"openmusic/internal/store"
)

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var in store.SongInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.songs.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"songId": id})
}

// handleListSongs serves the catalogue, optionally filtered by title and
// performer substrings.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.SongFilter{
		Title:     query.Get("title"),
		Performer: query.Get("performer"),
	}

	songs, source, err := s.songs.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string][]store.SongSummary{"songs": songs})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, source, err := s.songs.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]store.Song{"song": song})
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	var in store.SongInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.songs.Update(r.Context(), pathID(r), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "song updated")
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "song deleted")
}
