package fetcher

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

var (
	ErrEmptyBody    = errors.New("reader/fetcher: empty response body")
	ErrBodyTooLarge = errors.New("reader/fetcher: response body too large")
	ErrTLS          = errors.New("reader/fetcher: tls error")
	ErrNetwork      = errors.New("reader/fetcher: network error")
	ErrTimeout      = errors.New("reader/fetcher: network timeout")
)

// Err returns the client error of the request or an error describing an
// unexpected response. A 304 response is not an error.
func (r *ResponseHandler) Err() error {
	if r.clientErr != nil {
		return clientErr(r.clientErr)
	}
	return r.statusCodeErr()
}

func clientErr(err error) error {
	const msgFmt = "%w: %w"
	switch {
	case sslError(err):
		return fmt.Errorf(msgFmt, ErrTLS, err)
	case timeoutError(err):
		return fmt.Errorf(msgFmt, ErrTimeout, err)
	case errors.Is(err, io.EOF):
		return fmt.Errorf(msgFmt, ErrEmptyBody, err)
	case networkError(err):
		return fmt.Errorf(msgFmt, ErrNetwork, err)
	}
	return fmt.Errorf("reader/fetcher: http client error: %w", err)
}

func timeoutError(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func networkError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sslError(err error) bool {
	var certErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) {
		return true
	}

	var hostErr *x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}

	var algErr *x509.InsecureAlgorithmError
	return errors.As(err, &algErr)
}

func (r *ResponseHandler) statusCodeErr() error {
	statusCode := r.StatusCode()
	if statusCode < 400 {
		// Content-Length = -1 when no Content-Length header is sent.
		if statusCode != http.StatusNotModified &&
			r.httpResponse.ContentLength == 0 {
			return ErrEmptyBody
		}
		return nil
	}

	statusText := r.bodyStatusText()
	if statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %d %s",
			NewErrTooManyRequests(r.URL().Hostname(),
				time.Now().Add(r.parseRetryDelay())),
			statusCode, statusText)
	}
	return &StatusError{StatusCode: statusCode, Status: statusText}
}

// StatusError is returned for responses with 4xx and 5xx status codes.
type StatusError struct {
	StatusCode int
	Status     string
}

var _ error = (*StatusError)(nil)

func (self *StatusError) Error() string {
	return fmt.Sprintf("reader/fetcher: unexpected status code: %d %s",
		self.StatusCode, self.Status)
}

type ErrTooManyRequests struct {
	hostname   string
	retryAfter time.Time
}

var _ error = (*ErrTooManyRequests)(nil)

func NewErrTooManyRequests(hostname string, retryAfter time.Time,
) *ErrTooManyRequests {
	return &ErrTooManyRequests{
		hostname:   hostname,
		retryAfter: retryAfter,
	}
}

func (self *ErrTooManyRequests) Error() string {
	return fmt.Sprintf(
		"reader/fetcher: host %q rate limited, retry in %s",
		self.hostname, time.Until(self.RetryAfter()).Round(time.Second))
}

func (self *ErrTooManyRequests) RetryAfter() time.Time {
	return self.retryAfter
}
