// Package limiter defines interfaces and implementations for client-side request throttling.
package limiter

import "context"

// Limiter controls how fast requests leave the client.
type Limiter interface {
	// Wait blocks until a request may be sent or ctx is done.
	Wait(ctx context.Context) error
}

// Nop never throttles.
type Nop struct{}

// Wait returns immediately unless ctx is already done.
func (Nop) Wait(ctx context.Context) error { return ctx.Err() }
