// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher // import "streamlance.app/internal/reader/fetcher"

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"streamlance.app/internal/config"
	"streamlance.app/internal/logging"
	"streamlance.app/internal/model"
	"streamlance.app/internal/version"
)

const (
	defaultAcceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"

	defaultTimeout     = 20 * time.Second
	defaultMaxBodySize = 15 * 1024 * 1024
)

// NewRequestFeed returns a builder of a conditional request for the feed
// described by state.
func NewRequestFeed(state *model.FeedState) *RequestBuilder {
	return NewRequestBuilder().
		WithETag(state.EtagHeader).
		WithLastModified(state.LastModifiedHeader)
}

type RequestBuilder struct {
	ctx           context.Context
	headers       http.Header
	clientTimeout time.Duration
	maxBodySize   int64

	customizedClient bool
}

func NewRequestBuilder() *RequestBuilder {
	r := &RequestBuilder{
		headers:       make(http.Header),
		clientTimeout: defaultTimeout,
		maxBodySize:   defaultMaxBodySize,
	}

	userAgent := version.New().UserAgent()
	if config.Opts != nil {
		r.clientTimeout = config.Opts.HTTPClientTimeout()
		r.maxBodySize = config.Opts.HTTPClientMaxBodySize()
		userAgent = config.Opts.HTTPClientUserAgent()
	}
	return r.WithUserAgent(userAgent)
}

func (r *RequestBuilder) WithContext(ctx context.Context) *RequestBuilder {
	r.ctx = ctx
	return r
}

func (r *RequestBuilder) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

func (r *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	r.headers.Set(key, value)
	return r
}

func (r *RequestBuilder) WithETag(etag string) *RequestBuilder {
	if etag != "" {
		r.headers.Set("If-None-Match", etag)
	}
	return r
}

func (r *RequestBuilder) WithLastModified(lastModified string) *RequestBuilder {
	if lastModified != "" {
		r.headers.Set("If-Modified-Since", lastModified)
	}
	return r
}

func (r *RequestBuilder) WithUserAgent(userAgent string) *RequestBuilder {
	if userAgent != "" {
		r.headers.Set("User-Agent", userAgent)
	}
	return r
}

func (r *RequestBuilder) WithTimeout(d time.Duration) *RequestBuilder {
	if d > 0 && d != r.clientTimeout {
		r.clientTimeout = d
		r.customizedClient = true
	}
	return r
}

func (r *RequestBuilder) WithMaxBodySize(n int64) *RequestBuilder {
	if n > 0 {
		r.maxBodySize = n
	}
	return r
}

func (r *RequestBuilder) Timeout() time.Duration { return r.clientTimeout }

func (r *RequestBuilder) execute(requestURL string) (*http.Response, error) {
	req, err := r.req(requestURL)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(r.Context())
	log.Debug("Making outgoing request",
		slog.Bool("customized", r.customizedClient),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Any("headers", req.Header),
		slog.Duration("timeout", r.Timeout()))

	start := time.Now()
	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("reader/fetcher: do http request: %w", err)
	}

	log.Info("Got response",
		slog.String("url", req.URL.String()),
		slog.Int("status_code", resp.StatusCode),
		slog.Int64("content_length", resp.ContentLength),
		slog.String("proto", resp.Proto),
		slog.Duration("request_time", time.Since(start)))
	return resp, nil
}

var (
	defaultClient *http.Client
	onceClient    sync.Once
)

func (r *RequestBuilder) client() *http.Client {
	if r.customizedClient {
		return r.makeClient()
	}
	onceClient.Do(func() { defaultClient = r.makeClient() })
	return defaultClient
}

func (r *RequestBuilder) makeClient() *http.Client {
	return &http.Client{
		Transport: r.transport(),
		Timeout:   r.Timeout(),
	}
}

func (r *RequestBuilder) transport() http.RoundTripper {
	dialer := &net.Dialer{Timeout: r.Timeout()}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   r.Timeout(),
		DisableKeepAlives:     r.customizedClient,
		IdleConnTimeout:       10 * time.Second,
		ResponseHeaderTimeout: r.Timeout(),

		// Setting `DialContext` disables HTTP/2, this option forces the transport
		// to try HTTP/2 regardless.
		ForceAttemptHTTP2: true,
	}
	return gzhttp.Transport(transport)
}

func (r *RequestBuilder) req(requestURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("reader/fetcher: create http request: %w", err)
	}
	req.Header = r.headers.Clone()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", defaultAcceptHeader)
	}
	return req, nil
}

// Request makes a GET request to requestURL. The returned response must be
// closed by caller.
func (r *RequestBuilder) Request(requestURL string) (*ResponseHandler, error) {
	return r.RequestWithContext(r.Context(), requestURL)
}

// RequestWithContext is like Request, but makes the request with ctx. Only an
// invalid requestURL is returned as error, failures of the request itself are
// reported by ResponseHandler.Err.
func (r *RequestBuilder) RequestWithContext(ctx context.Context,
	requestURL string,
) (*ResponseHandler, error) {
	if _, err := url.Parse(requestURL); err != nil {
		return nil, fmt.Errorf("reader/fetcher: parse %q: %w", requestURL, err)
	}

	//nolint:bodyclose // ResponseHandler.Close() closes it
	resp, err := r.WithContext(ctx).execute(requestURL)
	return NewResponseHandler(resp, err, r.maxBodySize), nil
}
