package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finplan/internal/core"
	flog "finplan/internal/log"
	"finplan/internal/services"
)

// JSONResponse is a small fluent builder for API responses.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponse {
	return &JSONResponse{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Write sends the response. A nil body writes only the status line.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func ErrorResponse(statusCode int, message string) *JSONResponse {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponse {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponse {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponse {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError hides the cause and tells the client the request may
// be retried.
func InternalServerError() *JSONResponse {
	return NewJSONResponse().Status(http.StatusInternalServerError).
		Body(errorBody{Error: "internal error", Retryable: true})
}

// inputError is a request field the handler could not parse.
type inputError struct {
	field string
	err   error
}

func (e *inputError) Error() string { return e.field + ": " + e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(field string, err error) error {
	return &inputError{field: field, err: err}
}

var errMalformedBody = errors.New("malformed JSON body")

// writeError maps service errors to status codes and logs server faults.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ie *inputError
	switch {
	case errors.Is(err, errMalformedBody):
		BadRequestError(err.Error()).Write(w)
	case errors.As(err, &ie), core.IsValidation(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case services.IsNotFound(err):
		NotFoundError("not found").Write(w)
	default:
		logger := flog.FromContext(r.Context())
		logger.Fields(r.Context(), slog.LevelError, "Request failed", flog.NewFields().
			WithOperation(op).
			WithError(err).
			WithErrorType(flog.ErrorTypeDatabase))
		InternalServerError().Write(w)
	}
}
