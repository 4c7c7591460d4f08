package limiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/and161185/vidvote/internal/errs"
)

// Rate is a token-bucket limiter.
type Rate struct {
	lim *rate.Limiter
}

// NewRate constructs a limiter allowing perSecond requests with the given burst.
// A burst below 1 is raised to 1.
func NewRate(perSecond float64, burst int) *Rate {
	if burst < 1 {
		burst = 1
	}
	return &Rate{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// New returns a Rate limiter when perSecond > 0 and Nop otherwise.
func New(perSecond float64, burst int) Limiter {
	if perSecond <= 0 {
		return Nop{}
	}
	return NewRate(perSecond, burst)
}

// Wait blocks until the bucket has a token. A wait that cannot finish
// before the context deadline fails with errs.ErrRateLimited.
func (r *Rate) Wait(ctx context.Context) error {
	if err := r.lim.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errs.ErrRateLimited, err)
	}
	return nil
}
