package engine

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"omnisearch/internal/domain"
	"omnisearch/internal/usecase/dispatch"
)

const (
	defaultConnTimeout = 5 * time.Second
	defaultRespTimeout = 10 * time.Second
	maxResponseBytes   = 4 << 20
	errorBodySnippet   = 256
	defaultUserAgent   = "omnisearch/1.0 (+https://github.com/omnisearch/omnisearch)"
)

// NewPooledTransport returns an HTTP transport tuned for many small
// requests against a stable set of provider hosts.
func NewPooledTransport(connTimeout, respTimeout time.Duration) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connTimeout,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// HTTPInvoker performs backend requests over HTTP. One shared instance
// serves every online adapter; per-run deadlines come in through the ctx,
// so the client itself carries no timeout.
type HTTPInvoker struct {
	client    *http.Client
	userAgent string
}

// NewHTTPInvoker creates an invoker with a pooled transport. Zero-valued
// timeouts fall back to defaults.
func NewHTTPInvoker(connTimeout, respTimeout time.Duration) *HTTPInvoker {
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}
	return &HTTPInvoker{
		client: &http.Client{
			Transport: NewPooledTransport(connTimeout, respTimeout),
		},
		userAgent: defaultUserAgent,
	}
}

// Invoke performs one request. Non-2xx responses become an HTTPStatusError so
// the failure classifier can tell rate limiting and blocking from outages.
func (h *HTTPInvoker) Invoke(ctx context.Context, spec *domain.RequestSpec) (*domain.RawResponse, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return nil, domain.WrapOp("Invoke", err)
	}
	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.WrapOp("Invoke", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > errorBodySnippet {
			snippet = snippet[:errorBodySnippet]
		}
		return nil, &dispatch.HTTPStatusError{Status: resp.StatusCode, Body: snippet}
	}

	return &domain.RawResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   raw,
	}, nil
}
