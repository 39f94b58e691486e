package appctx

import (
	"context"
	"time"
)

type softDeadlineKey struct{}

// WithSoftDeadline returns a context carrying an advisory soft deadline.
// Unlike the context deadline it cancels nothing: long workflows poll it at
// phase boundaries and abandon gracefully, while in-flight calls run on
// until the hard (context) deadline terminates them.
func WithSoftDeadline(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, softDeadlineKey{}, t)
}

// SoftDeadline returns the soft deadline, if one is set.
func SoftDeadline(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(softDeadlineKey{}).(time.Time)
	return t, ok
}

// SoftDeadlineExceeded reports whether a soft deadline is set and has passed.
func SoftDeadlineExceeded(ctx context.Context) bool {
	t, ok := SoftDeadline(ctx)
	return ok && !time.Now().Before(t)
}
