package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/doodlesbykumbi/ws-lock/pkg/server/middleware"
)

// respondWithError uses the same {"error": ...} body as the auth middleware
func respondWithError(w http.ResponseWriter, code int, msg string) {
	middleware.WriteError(w, code, msg)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
