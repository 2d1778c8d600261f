// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the success/error envelopes shared by every handler.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes produced by the transport layer itself. Domain codes come from
// core.
const (
	CodeRateLimited      = "RATE_LIMITED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// SuccessEnvelope acknowledges a mutation.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err, "status", b.statusCode)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"failed to encode response","details":{}}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(v).Write(w)
}

// Created writes v with status 201.
func Created(w http.ResponseWriter, v any) {
	NewJSONResponse().Status(http.StatusCreated).Body(v).Write(w)
}

// ErrorResponse creates a standard error envelope response.
func ErrorResponse(statusCode int, code, message string, details map[string]any) *JSONResponseBuilder {
	if details == nil {
		details = map[string]any{}
	}
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorEnvelope{
			Success: false,
			Error:   ErrorBody{Code: code, Message: message, Details: details},
		})
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed",
		map[string]any{"allowed": allowedMethods}).
		Header("Allow", allowedMethods)
}

// RateLimitedError creates a 429 response.
func RateLimitedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, CodeRateLimited,
		"Rate limit exceeded. Please try again later.", nil)
}
