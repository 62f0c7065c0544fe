package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError sends a JSON error body with a user-safe message. The
// underlying error, if any, goes to the log only.
func writeError(w http.ResponseWriter, log *zap.Logger, status int, userMsg string, err error) {
	if err != nil {
		log.Error(userMsg, zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: userMsg})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
