package httpapi

import (
	"net/http"

	"openmusic/internal/store"
)

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var in store.AlbumInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.albums.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"albumId": id})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, source, err := s.albums.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]store.Album{"album": album})
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	var in store.AlbumInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.albums.Update(r.Context(), pathID(r), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "album updated")
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "album deleted")
}

func (s *Server) handleUpdateAlbumCover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoverURL string `json:"coverUrl"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.albums.UpdateCover(r.Context(), pathID(r), req.CoverURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "album cover updated")
}

func (s *Server) handleLikeAlbum(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Like(r.Context(), userIDFrom(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "album liked")
}

func (s *Server) handleUnlikeAlbum(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Unlike(r.Context(), userIDFrom(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "album unliked")
}

func (s *Server) handleAlbumLikes(w http.ResponseWriter, r *http.Request) {
	count, source, err := s.albums.Likes(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]int{"likes": count})
}
