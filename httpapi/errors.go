package httpapi

import (
	"errors"
	"net/http"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/service"
	"github.com/unkn0wn-root/blogcas/store"
)

const conflictMessage = "The record has been modified by another user. Please refresh and try again."

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

var errBadRequest = errors.New("malformed request")

// writeError maps service and store errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ce *service.ConflictError
		ve *service.ValidationError
		ke *store.ConstraintError
	)
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorBody{
			Message: conflictMessage,
			Errors:  map[string][]string{"etag": {conflictMessage}},
		})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "The given data was invalid.", Errors: ve.Fields})
	case errors.As(err, &ke):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "The given data was invalid.",
			Errors:  map[string][]string{ke.Field: {"has already been taken"}},
		})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found."})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Message: "This action is unauthorized."})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
	default:
		s.log.Error("http_internal_error", blogcas.Fields{"method": r.Method, "path": r.URL.Path, "err": err})
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Server error."})
	}
}
