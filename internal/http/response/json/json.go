// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package json // import "streamlance.app/internal/http/response/json"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"streamlance.app/internal/http/request"
	"streamlance.app/internal/logging"
)

const contentTypeHeader = `application/json`

// OK creates a new JSON response with a 200 status code.
func OK(w http.ResponseWriter, r *http.Request, body any) {
	responseBody, err := json.Marshal(body)
	if err != nil {
		ServerError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, responseBody)
}

// ServerError sends an internal error to the client.
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	log := requestLogger(r).With(slog.Any("error", err))

	clientClosed := errors.Is(err, context.Canceled) &&
		errors.Is(r.Context().Err(), context.Canceled)
	if clientClosed {
		statusCode := 499
		log.Debug("client closed request",
			slog.Group("response", slog.Int("status_code", statusCode)))
		http.Error(w, err.Error(), statusCode)
		return
	}

	statusCode := http.StatusInternalServerError
	log.Error(http.StatusText(statusCode),
		slog.Group("response", slog.Int("status_code", statusCode)))
	writeError(w, r, statusCode, err)
}

// BadRequest sends a bad request error to the client.
func BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	requestLogger(r).Warn(http.StatusText(http.StatusBadRequest),
		slog.Any("error", err),
		slog.Group("response", slog.Int("status_code", http.StatusBadRequest)))
	writeError(w, r, http.StatusBadRequest, err)
}

// NotFound sends a page not found error to the client.
func NotFound(w http.ResponseWriter, r *http.Request) {
	requestLogger(r).Warn(http.StatusText(http.StatusNotFound),
		slog.Group("response", slog.Int("status_code", http.StatusNotFound)))
	writeError(w, r, http.StatusNotFound, errors.New("resource not found"))
}

func requestLogger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context()).With(
		slog.String("client_ip", request.ClientIP(r)),
		slog.Group("request",
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
			slog.String("user_agent", r.UserAgent())))
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int,
	err error,
) {
	body, jsonErr := generateJSONError(err)
	if jsonErr != nil {
		logging.FromContext(r.Context()).Error("Unable to generate JSON error",
			slog.Any("error", jsonErr))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	write(w, r, statusCode, body)
}

func write(w http.ResponseWriter, r *http.Request, statusCode int,
	body []byte,
) {
	h := w.Header()
	h.Set("Content-Type", contentTypeHeader)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Error(
			"http/response: unable to write response", slog.Any("error", err))
	}
}

func generateJSONError(err error) ([]byte, error) {
	type errorMsg struct {
		ErrorMessage string `json:"error_message"`
	}
	encodedBody, err := json.Marshal(errorMsg{ErrorMessage: err.Error()})
	if err != nil {
		return nil, fmt.Errorf(
			"http/response/json: failed marshal error message: %w", err)
	}
	return encodedBody, nil
}
