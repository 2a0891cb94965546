package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/neveleren/thewire/pkg/store"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	respondJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// storeError maps store failures onto the status taxonomy: not-found rows
// become 404, everything else is a 500.
func storeError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, "%s", notFoundMsg)
		return
	}
	httpError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptionalBody tolerates an absent body, leaving dst zero-valued.
func decodeOptionalBody(r *http.Request, dst interface{}) {
	json.NewDecoder(r.Body).Decode(dst)
}
