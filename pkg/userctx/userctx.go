// Package userctx carries the acting user through the context. The trigger
// site (the request handler firing the lease write hook) sets the user; the
// background worker reads it back out of the job payload and re-sets it.
// There is no ambient fallback, a missing user is a deliberate skip.
package userctx

import "context"

// User identifies the person on whose behalf cloud calls are made. Cloud
// credentials are looked up by ID.
type User struct {
	ID       string
	Username string
	Email    string
}

type key int

const userKey key = iota

// ContextGetUser returns the user if set in the given context.
func ContextGetUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok
}

// ContextMustGetUser panics if user is not in context.
func ContextMustGetUser(ctx context.Context) *User {
	u, ok := ContextGetUser(ctx)
	if !ok {
		panic("user not found in context")
	}
	return u
}

// ContextSetUser stores the user in the context.
func ContextSetUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}
