package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"openmusic/internal/apperr"
	"openmusic/internal/logging"
	"openmusic/internal/store"
)

// dataSourceHeader tells clients whether a read was answered from the cache.
const dataSourceHeader = "X-Data-Source"

const maxBodyBytes = 1 << 20

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "success", Message: message})
}

func writeSource(w http.ResponseWriter, source store.Source) {
	w.Header().Set(dataSourceHeader, string(source))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvariant:
		return http.StatusBadRequest
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status code. Unclassified errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, status, envelope{Status: "error", Message: apperr.Message(err)})
		return
	}
	writeJSON(w, status, envelope{Status: "fail", Message: apperr.Message(err)})
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// decodeJSON reads one JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invariant("request body is required")
		}
		return apperr.Wrap(apperr.KindInvariant, "invalid request body", fmt.Errorf("decode json: %w", err))
	}
	return nil
}
