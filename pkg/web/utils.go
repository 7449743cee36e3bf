package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// setupTokenHeader carries the pre-shared setup credential on every call.
const setupTokenHeader = "X-Setup-Token"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func sendResponse(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
	}
}

func sendErrorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: "error", Message: message})
}

// sendError maps a provisioning error onto its HTTP status, keeping the
// wire-stable kind in the error field.
func sendError(w http.ResponseWriter, err error) {
	kind := inkyprovd.KindOf(err)
	if kind == "" {
		sendErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	message := err.Error()
	var pe *inkyprovd.Error
	if errors.As(err, &pe) {
		message = pe.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kindStatus(kind))
	json.NewEncoder(w).Encode(errorResponse{Error: string(kind), Message: message})
}

func kindStatus(kind inkyprovd.ErrorKind) int {
	switch kind {
	case inkyprovd.ErrSessionConflict:
		return http.StatusConflict
	case inkyprovd.ErrInvalidCode:
		return http.StatusForbidden
	case inkyprovd.ErrSessionExpired:
		return http.StatusGone
	case inkyprovd.ErrStepMismatch, inkyprovd.ErrStaleOAuthState:
		return http.StatusConflict
	case inkyprovd.ErrApplierFailure, inkyprovd.ErrPersistenceFailure, inkyprovd.ErrRestartSignalFailure:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// authReq wraps a handler with the setup-token check. Websocket routes go
// through the same gate; the token rides the header on the upgrade request.
func authReq(token string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(setupTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			sendErrorResponse(w, http.StatusUnauthorized, "Missing or invalid setup token")
			return
		}
		h(w, r)
	}
}

// decodeBody decodes a JSON request body into out, rejecting unknown
// fields so typos fail loudly during setup.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "Error decoding request body")
		return false
	}
	return true
}
