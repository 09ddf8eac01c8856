// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

// clientLimiter keeps one token bucket per client key.
type clientLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

func newClientLimiter(perMinute int) *clientLimiter {
	if perMinute <= 0 {
		perMinute = defaultRateLimit
	}
	return &clientLimiter{
		m:     make(map[string]*rate.Limiter),
		rate:  rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.m[key]
	if !ok {
		if len(c.m) >= maxTrackedClients {
			c.m = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(c.rate, c.burst)
		c.m[key] = lim
	}
	return lim.Allow()
}
