// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gateway fetches transaction data from an Arweave gateway, either
// as a single stream or as an io.ReaderAt backed by HTTP range requests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pradovic/arweave-ans-104-indexer/bundle"
)

// DefaultURL is the public gateway used when none is configured
const DefaultURL = "https://arweave.net"

const (
	defaultMaxRetries = 5
	defaultTimeout    = 30 * time.Second
)

var (
	ErrInvalidTxID = errors.New("invalid transaction id")
	ErrNotFound    = errors.New("transaction data not found")
)

// StatusError is an unexpected HTTP response status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// ValidateTxID checks that id is a base64url encoded 32-byte transaction id
func ValidateTxID(id string) error {
	if _, err := bundle.ParseID(id); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTxID, id, err)
	}
	return nil
}

// Client fetches transaction data from a gateway
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client. A nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackOff sets the retry schedule. fn is called once per request.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		if fn != nil {
			c.newBackOff = fn
		}
	}
}

// New creates a client for the gateway at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		// No overall timeout: bodies of large bundles take as long as they take
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: defaultTimeout,
				TLSHandshakeTimeout:   defaultTimeout,
			},
		},
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "gateway")
	return c, nil
}

// URL returns the data URL of a transaction
func (c *Client) URL(txID string) string {
	return c.baseURL.JoinPath(txID).String()
}

// Body is the streamed data of a transaction
type Body struct {
	io.ReadCloser
	size int64
}

// Size returns the length announced by the gateway, or -1 if unknown
func (b *Body) Size() int64 {
	return b.size
}

// Open requests the data of a transaction and returns its body for
// streaming. The caller must close the body.
func (c *Client) Open(ctx context.Context, txID string) (*Body, error) {
	if err := ValidateTxID(txID); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, c.URL(txID), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &Body{ReadCloser: resp.Body, size: resp.ContentLength}, nil
}

// OpenRange returns a reader for positioned reads of a transaction's data.
// The gateway must report the data length.
func (c *Client) OpenRange(ctx context.Context, txID string) (*RangeReader, error) {
	if err := ValidateTxID(txID); err != nil {
		return nil, err
	}
	u := c.URL(txID)
	resp, err := c.do(ctx, http.MethodHead, u, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("gateway did not report the length of %s", u)
	}
	return &RangeReader{
		ctx:    ctx,
		client: c,
		url:    u,
		size:   resp.ContentLength,
	}, nil
}

// RangeReader reads transaction data with one range request per ReadAt
// call. It is safe for concurrent use.
type RangeReader struct {
	// ctx bounds every request, as io.ReaderAt has no context parameter
	ctx    context.Context
	client *Client
	url    string
	size   int64
}

func (r *RangeReader) Size() int64 {
	return r.size
}

func (r *RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	want := p
	if remaining := r.size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}
	if len(want) == 0 {
		return 0, nil
	}
	header := http.Header{}
	header.Set("Range", "bytes="+strconv.FormatInt(off, 10)+"-"+strconv.FormatInt(off+int64(len(want))-1, 10))
	resp, err := r.client.do(r.ctx, http.MethodGet, r.url, header, http.StatusPartialContent)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.ReadFull(resp.Body, want)
	if err != nil {
		return n, fmt.Errorf("read range at %d: %w", off, err)
	}
	if len(want) < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// do sends a request, retrying transient failures, and returns the response
// if its status is expected
func (c *Client) do(
	ctx context.Context,
	method, u string,
	header http.Header,
	expected int,
) (*http.Response, error) {
	var resp *http.Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		res, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if res.StatusCode == expected {
			resp = res
			return nil
		}
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		if res.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, u))
		}
		statusErr := &StatusError{URL: u, StatusCode: res.StatusCode}
		if !statusErr.Temporary() {
			return backoff.Permanent(statusErr)
		}
		return statusErr
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn(
			"gateway request failed, retrying",
			"method", method,
			"url", u,
			"error", err,
			"retry_in", wait,
		)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// TrimTxID strips whitespace and a trailing gateway path from user input,
// so both "<id>" and "https://arweave.net/<id>" are accepted
func TrimTxID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
