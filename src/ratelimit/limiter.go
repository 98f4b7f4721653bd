// Package ratelimit bounds how many connection requests a user may send in a
// trailing window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/repository"
)

// Limiter is consulted before a request is created and told about it after.
type Limiter interface {
	// Allow returns apperr.ErrRateLimited once identity reached the limit
	// inside the window ending now.
	Allow(ctx context.Context, identity string) error
	// Record counts one request sent by identity at at.
	Record(ctx context.Context, identity string, at time.Time) error
}

type Policy struct {
	Limit  int
	Window time.Duration
}

// StoreLimiter counts the requests already persisted in the connection
// store. The stored requests are the record, so Record does nothing.
type StoreLimiter struct {
	connections repository.ConnectionRepository
	clock       clock.Clock
	policy      Policy
}

func NewStoreLimiter(connections repository.ConnectionRepository, clk clock.Clock, policy Policy) *StoreLimiter {
	return &StoreLimiter{connections: connections, clock: clk, policy: policy}
}

func (l *StoreLimiter) Allow(ctx context.Context, identity string) error {
	since := l.clock.Now().Add(-l.policy.Window)
	sent, err := l.connections.CountSentSince(ctx, identity, since)
	if err != nil {
		return fmt.Errorf("count sent requests: %w", err)
	}
	if sent >= int64(l.policy.Limit) {
		return apperr.ErrRateLimited
	}
	return nil
}

func (l *StoreLimiter) Record(context.Context, string, time.Time) error {
	return nil
}
