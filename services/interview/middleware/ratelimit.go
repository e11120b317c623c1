// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/observability"
)

// DefaultIdleTTL is how long an untouched client bucket survives before
// the sweep reclaims it.
const DefaultIdleTTL = 10 * time.Minute

// rateLimitComponent labels inbound rejections in metrics, distinct from
// the per-component poll budgets.
const rateLimitComponent = "http"

// clientBucket pairs a token bucket with its last use for idle eviction.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter hands out one token bucket per client key. The bucket
// refills at perMinute/60 tokens per second with a burst of the full
// per-minute ceiling, so a client can spend its whole minute budget at
// once but no faster.
//
// # Thread Safety
//
// Safe for concurrent use. The lock covers only in-memory bookkeeping.
type ClientLimiter struct {
	perMinute int
	idleTTL   time.Duration

	mu        sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

// NewClientLimiter creates a limiter with the given per-minute ceiling.
func NewClientLimiter(perMinute int) *ClientLimiter {
	return &ClientLimiter{
		perMinute: perMinute,
		idleTTL:   DefaultIdleTTL,
		buckets:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed. A rejected request consumes nothing.
func (l *ClientLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// sweepLocked drops buckets idle past the TTL. Runs at most once per TTL
// so steady traffic pays no extra scan cost.
func (l *ClientLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// BucketCount reports how many client buckets are live.
func (l *ClientLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit creates a Gin middleware enforcing the per-client request
// budget. A nil limiter disables enforcement entirely.
//
// The client key is the verified API key when auth stamped one, else the
// client IP, so anonymous dev-mode traffic is still bounded per host.
func RateLimit(limiter *ClientLimiter, metrics *observability.ResolutionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(ClientKey(c)) {
			if metrics != nil {
				metrics.RecordRateLimitRejection(rateLimitComponent)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
				ErrorCode: datatypes.ErrCodeRateLimited,
				Message:   "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
