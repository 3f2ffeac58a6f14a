// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	dErrors "countriapi/pkg/domain-errors"
	"countriapi/pkg/requestcontext"
)

// ErrorResponse is the single error envelope returned by the API.
type ErrorResponse struct {
	StatusCode  int       `json:"statusCode"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
}

const internalErrorMessage = "Sorry, we couldn't complete your request at this time. " +
	"The server encountered an error while processing your request. " +
	"Please try again later or contact support if the problem persists."

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the error envelope. Messages of internal or
// uncoded errors are replaced so causes never reach the response body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := internalErrorMessage
	if de, ok := dErrors.As(err); ok {
		status = StatusFor(de.Code)
		if de.Code != dErrors.CodeInternal {
			message = de.Message
		}
	}
	WriteJSON(w, status, ErrorResponse{
		StatusCode:  status,
		Timestamp:   requestcontext.Now(r.Context()).UTC(),
		Message:     message,
		Description: "uri=" + r.URL.Path,
	})
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNoValidEntries:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into T, rejecting unknown fields.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return &v, nil
}
