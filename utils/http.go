package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps the payload of a 2xx JSON reply.
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorCodes maps a status to the machine-readable error field.
var errorCodes = map[int]string{
	http.StatusBadRequest:      "bad_request",
	http.StatusUnauthorized:    "unauthorized",
	http.StatusForbidden:       "forbidden",
	http.StatusNotFound:        "not_found",
	http.StatusConflict:        "conflict",
	http.StatusTooManyRequests: "rate_limit_exceeded",
	http.StatusBadGateway:      "bad_gateway",
}

// WriteJSON sets the status and encodes data. A nil data leaves the body empty.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteText replies with a plain-text body. Session tokens and the role pages use it.
func WriteText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	return err
}

func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

// WriteBadRequest replies 400. Details usually carries per-field validation messages.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusBadRequest, message, details)
}

// WriteUnauthorized replies 401 for a missing, unknown or expired session.
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return writeWithFallback(w, http.StatusUnauthorized, message, "Authentication required")
}

// WriteForbidden replies 403 when the session lacks a required role.
func WriteForbidden(w http.ResponseWriter, message string) error {
	return writeWithFallback(w, http.StatusForbidden, message, "Access forbidden")
}

func WriteNotFound(w http.ResponseWriter, message string) error {
	return writeWithFallback(w, http.StatusNotFound, message, "Resource not found")
}

// WriteTooManyRequests replies 429 from the login limiter.
func WriteTooManyRequests(w http.ResponseWriter, message string, details map[string]interface{}) error {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return WriteError(w, http.StatusTooManyRequests, message, details)
}

func WriteInternalServerError(w http.ResponseWriter, message string) error {
	return writeWithFallback(w, http.StatusInternalServerError, message, "Internal server error")
}

// WriteBadGateway replies 502 when keycloak cannot be reached.
func WriteBadGateway(w http.ResponseWriter, message string) error {
	return writeWithFallback(w, http.StatusBadGateway, message, "Upstream service unavailable")
}

// WriteError replies with an ErrorResponse whose code follows status.
// Statuses without a dedicated code are reported as internal_error.
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	code, ok := errorCodes[status]
	if !ok {
		code = "internal_error"
	}
	return WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

func writeWithFallback(w http.ResponseWriter, status int, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return WriteError(w, status, message, nil)
}
