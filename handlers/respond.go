package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"team-collab/backend/logging"
	"team-collab/backend/models"
)

var validate = validator.New()

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Total   *int64      `json:"total,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, response{Success: true, Message: message, Data: data})
}

// writeError maps the service error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		authzErr      *models.AuthorizationError
		authnErr      *models.AuthenticationError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, response{Success: false, Message: validationErr.Message})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, response{Success: false, Message: notFoundErr.Error()})
	case errors.As(err, &authzErr):
		writeJSON(w, http.StatusForbidden, response{Success: false, Message: authzErr.Message})
	case errors.As(err, &authnErr):
		writeJSON(w, http.StatusUnauthorized, response{Success: false, Message: authnErr.Message})
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: Unhandled error: %v", err)
		writeJSON(w, http.StatusInternalServerError, response{Success: false, Message: "Something went wrong!"})
	}
}

// decodeAndValidate decodes the JSON body into dst and runs the payload's
// validation tags, rejecting before any mutation happens.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("invalid request payload")
	}
	if err := validate.Struct(dst); err != nil {
		return models.NewValidationError("validation error: %v", err)
	}
	return nil
}
