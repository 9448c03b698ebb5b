package api

import (
	"errors"
	"net/http"

	"bookmanager/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Unknown errors are internal faults and must not be reported as 404.
func httpStatusFromDomainError(err error) int {
	var notAuth *domain.AuthenticationError
	var validation *domain.ValidationError
	var notFound *domain.NotFoundError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notAuth):
		return http.StatusUnauthorized
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope. Fields is present only for
// aggregated validation failures.
type errorBody struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func errorBodyFrom(err error) errorBody {
	status := httpStatusFromDomainError(err)
	body := errorBody{Code: status, Message: err.Error()}
	if status == http.StatusInternalServerError {
		// Never leak internal failure detail to the caller.
		body.Message = "internal server error"
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		body.Fields = validation.Fields
	}
	return body
}
