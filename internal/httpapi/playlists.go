package httpapi

import (
	"net/http"

	"openmusic/internal/store"
)

type songRequest struct {
	SongID string `json:"songId"`
}

type collaborationRequest struct {
	PlaylistID string `json:"playlistId"`
	UserID     string `json:"userId"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.playlists.Create(r.Context(), userIDFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"playlistId": id})
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, source, err := s.playlists.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string][]store.PlaylistSummary{"playlists": playlists})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), userIDFrom(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "playlist deleted")
}

func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.playlists.AddSong(r.Context(), userIDFrom(r.Context()), pathID(r), req.SongID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "song added to playlist")
}

func (s *Server) handlePlaylistSongs(w http.ResponseWriter, r *http.Request) {
	playlist, source, err := s.playlists.Songs(r.Context(), userIDFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]store.PlaylistDetail{"playlist": playlist})
}

func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.playlists.RemoveSong(r.Context(), userIDFrom(r.Context()), pathID(r), req.SongID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "song removed from playlist")
}

func (s *Server) handlePlaylistActivities(w http.ResponseWriter, r *http.Request) {
	playlistID := pathID(r)
	activities, source, err := s.playlists.Activities(r.Context(), userIDFrom(r.Context()), playlistID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]any{
		"playlistId": playlistID,
		"activities": activities,
	})
}

func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req collaborationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.playlists.AddCollaborator(r.Context(), userIDFrom(r.Context()), req.PlaylistID, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"collaborationId": id})
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	var req collaborationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.playlists.RemoveCollaborator(r.Context(), userIDFrom(r.Context()), req.PlaylistID, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "collaboration removed")
}
