package notify

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// Delivers each notification to every wrapped sink. All sinks are attempted; errors are joined.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var ErrDropped = errors.New("notification dropped by rate limit")

// Wraps a sink with a token-bucket limit. Notifications over the limit are dropped (not queued), returning ErrDropped.
type LimitedSink struct {
	Inner   Sink
	Limiter *rate.Limiter
	// If set, only notifications matching this filter are forwarded at all
	Filter func(Notification) bool
}

func NewLimitedSink(inner Sink, limit rate.Limit, burst int) *LimitedSink {
	return &LimitedSink{
		Inner:   inner,
		Limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *LimitedSink) Send(ctx context.Context, n Notification) error {
	if s.Filter != nil && !s.Filter(n) {
		return nil
	}
	if !s.Limiter.Allow() {
		return ErrDropped
	}
	return s.Inner.Send(ctx, n)
}
