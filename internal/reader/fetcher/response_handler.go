// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher // import "streamlance.app/internal/reader/fetcher"

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamlance.app/internal/logging"
)

func NewResponseHandler(httpResponse *http.Response, clientErr error,
	maxBodySize int64,
) *ResponseHandler {
	return &ResponseHandler{
		httpResponse: httpResponse,
		clientErr:    clientErr,
		maxBodySize:  maxBodySize,
	}
}

type ResponseHandler struct {
	httpResponse *http.Response
	clientErr    error

	maxBodySize int64
}

func (r *ResponseHandler) Status() string  { return r.httpResponse.Status }
func (r *ResponseHandler) StatusCode() int { return r.httpResponse.StatusCode }

func (r *ResponseHandler) Header(key string) string {
	return r.httpResponse.Header.Get(key)
}

func (r *ResponseHandler) URL() *url.URL { return r.httpResponse.Request.URL }

func (r *ResponseHandler) EffectiveURL() string { return r.URL().String() }

func (r *ResponseHandler) LastModified() string {
	// Ignore caching headers for feeds that do not want any cache.
	if r.httpResponse.Header.Get("Expires") == "0" {
		return ""
	}
	return r.httpResponse.Header.Get("Last-Modified")
}

func (r *ResponseHandler) ETag() string {
	// Ignore caching headers for feeds that do not want any cache.
	if r.httpResponse.Header.Get("Expires") == "0" {
		return ""
	}
	return r.httpResponse.Header.Get("ETag")
}

func (r *ResponseHandler) parseRetryDelay() time.Duration {
	retryAfter := r.Header("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(max(0, seconds)) * time.Second
	}

	t, err := time.Parse(time.RFC1123, retryAfter)
	if err != nil || t.Before(time.Now()) {
		return 0
	}
	return time.Until(t)
}

// IsModified returns false if the server answered 304 or returned the same
// validators we sent. ETag takes precedence over Last-Modified.
func (r *ResponseHandler) IsModified(lastEtagValue, lastModifiedValue string,
) bool {
	if r.httpResponse.StatusCode == http.StatusNotModified {
		return false
	}

	if r.ETag() != "" {
		return r.ETag() != lastEtagValue
	}

	if r.LastModified() != "" {
		return r.LastModified() != lastModifiedValue
	}
	return true
}

func (r *ResponseHandler) Close() {
	if r.clientErr != nil || r.httpResponse == nil {
		return
	}
	BodyClose(r.httpResponse.Body)
}

// maxPostHandlerReadBytes is the max number of bytes we drain from an unread
// body to keep the connection alive.
//
// See: net/http/server.go
const maxPostHandlerReadBytes = 256 << 10

// https://github.com/golang/go/issues/60240
func BodyClose(r io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, r, maxPostHandlerReadBytes+1)
	r.Close()
}

func (r *ResponseHandler) Body() io.ReadCloser {
	logging.FromContext(r.httpResponse.Request.Context()).Debug(
		"Request response",
		slog.String("effective_url", r.EffectiveURL()),
		slog.String("content_length", r.httpResponse.Header.Get("Content-Length")),
		slog.String("content_encoding",
			r.httpResponse.Header.Get("Content-Encoding")),
		slog.String("content_type", r.httpResponse.Header.Get("Content-Type")))
	return http.MaxBytesReader(nil, r.httpResponse.Body, r.maxBodySize)
}

// ReadBody reads the whole body, limited by the max body size.
func (r *ResponseHandler) ReadBody() ([]byte, error) {
	var buffer bytes.Buffer
	if err := r.WriteBodyTo(&buffer); err != nil {
		return nil, err
	}

	if buffer.Len() == 0 {
		return nil, ErrEmptyBody
	}
	return buffer.Bytes(), nil
}

func (r *ResponseHandler) WriteBodyTo(w io.Writer) error {
	_, err := io.Copy(w, r.Body())
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, maxBytesErr.Limit)
	}
	return fmt.Errorf("reader/fetcher: unable to read response body: %w", err)
}

func (r *ResponseHandler) bodyStatusText() string {
	statusText := http.StatusText(r.StatusCode())
	var b bytes.Buffer
	_, _ = io.CopyN(&b, r.httpResponse.Body, 1024)
	if s, _, _ := strings.Cut(b.String(), "\n"); s != "" {
		switch statusText {
		case "":
			return s
		default:
			return statusText + ": " + s
		}
	}
	return statusText
}
