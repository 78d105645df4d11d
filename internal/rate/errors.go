package rate

import "errors"

var (
	// ErrRateLimited is returned once an identifier has used its failure budget.
	ErrRateLimited = errors.New("too many failed login attempts")
	// ErrRedisUnavailable wraps Redis command failures.
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)
