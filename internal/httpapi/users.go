package httpapi

import (
	"net/http"

	"openmusic/internal/store"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in store.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.users.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"userId": id})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, source, err := s.users.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSource(w, source)
	writeData(w, http.StatusOK, map[string]store.User{"user": user})
}

// handleSearchUsers is never cached, so it sets no data source header.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.Search(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string][]store.User{"users": users})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"accessToken": token})
}
