// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components.
package httputil

import (
	"net/http"

	"github.com/pdiddy/florafind/pkg/types"
)

// DefaultUserAgent is sent when the configuration names none.
const DefaultUserAgent = "florafind/0.1"

// NewClient returns an http.Client configured from cfg. A zero Timeout
// leaves the client without a deadline; callers bound requests with their
// context instead. Every request carries the configured User-Agent.
func NewClient(cfg types.HTTPConfig) *http.Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: ua},
	}
}

// userAgentTransport sets the User-Agent header on requests that lack one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
