// Package errtypes contains definitions for the common errors of the
// discovery engine. It would have been nice to call this package errors,
// but that clashes with github.com/pkg/errors.
package errtypes

// NotFound is the error to use when a cloud path does not exist.
type NotFound string

func (e NotFound) Error() string { return "error: not found: " + string(e) }

// IsNotFound implements the IsNotFound interface.
func (e NotFound) IsNotFound() {}

// CloudTransient is the error to use for network failures, rate limits and
// provider 5xx responses. It is always retryable.
type CloudTransient string

func (e CloudTransient) Error() string { return "error: cloud transient: " + string(e) }

// IsRetryable implements the IsRetryable interface.
func (e CloudTransient) IsRetryable() {}

// IsCloudTransient implements the IsCloudTransient interface.
func (e CloudTransient) IsCloudTransient() {}

// CloudAuth is the error to use when the provider rejects our credentials.
// The cloud client refreshes the token and retries once before surfacing
// this error, so by the time callers see it the failure is terminal.
type CloudAuth string

func (e CloudAuth) Error() string { return "error: cloud auth: " + string(e) }

// IsCloudAuth implements the IsCloudAuth interface.
func (e CloudAuth) IsCloudAuth() {}

// BasePathMissing is the error to use when an agency's configured archive
// base path does not exist at the provider. Requires operator action,
// never retried.
type BasePathMissing string

func (e BasePathMissing) Error() string { return "error: base path missing: " + string(e) }

// IsBasePathMissing implements the IsBasePathMissing interface.
func (e BasePathMissing) IsBasePathMissing() {}

// ConfigDisabled is the error to use when an agency's storage config exists
// but is switched off.
type ConfigDisabled string

func (e ConfigDisabled) Error() string { return "error: config disabled: " + string(e) }

// IsConfigDisabled implements the IsConfigDisabled interface.
func (e ConfigDisabled) IsConfigDisabled() {}

// ConfigMissing is the error to use when no storage config is registered
// for an agency.
type ConfigMissing string

func (e ConfigMissing) Error() string { return "error: config missing: " + string(e) }

// IsConfigMissing implements the IsConfigMissing interface.
func (e ConfigMissing) IsConfigMissing() {}

// DirectoryCreationFailed is the error to use when the provider accepted a
// create call but did not materialize the directory. Retryable.
type DirectoryCreationFailed string

func (e DirectoryCreationFailed) Error() string {
	return "error: directory creation failed: " + string(e)
}

// IsRetryable implements the IsRetryable interface.
func (e DirectoryCreationFailed) IsRetryable() {}

// IsDirectoryCreationFailed implements the IsDirectoryCreationFailed interface.
func (e DirectoryCreationFailed) IsDirectoryCreationFailed() {}

// UserRequired is the error to use when no user identity is available for
// cloud authentication.
type UserRequired string

func (e UserRequired) Error() string { return "error: user required: " + string(e) }

// IsUserRequired implements the IsUserRequired interface.
func (e UserRequired) IsUserRequired() {}

// InternalError is the error to use for local programming errors: schema
// drift, unexpected nulls. Never retried, never swallowed.
type InternalError string

func (e InternalError) Error() string { return "error: internal: " + string(e) }

// IsInternalError implements the IsInternalError interface.
func (e InternalError) IsInternalError() {}

// IsNotFound is the interface to implement
// to specify that a resource is not found.
type IsNotFound interface {
	IsNotFound()
}

// IsRetryable is the interface to implement to specify that the job runner
// may retry the failed operation with backoff.
type IsRetryable interface {
	IsRetryable()
}

// IsCloudTransient is the interface to implement
// to specify that the cloud provider failed transiently.
type IsCloudTransient interface {
	IsCloudTransient()
}

// IsCloudAuth is the interface to implement
// to specify that the cloud provider rejected our credentials.
type IsCloudAuth interface {
	IsCloudAuth()
}

// IsBasePathMissing is the interface to implement
// to specify that a configured base path is absent.
type IsBasePathMissing interface {
	IsBasePathMissing()
}

// IsConfigDisabled is the interface to implement
// to specify that the agency config declines processing.
type IsConfigDisabled interface {
	IsConfigDisabled()
}

// IsConfigMissing is the interface to implement
// to specify that no agency config was found.
type IsConfigMissing interface {
	IsConfigMissing()
}

// IsDirectoryCreationFailed is the interface to implement
// to specify that directory materialization failed.
type IsDirectoryCreationFailed interface {
	IsDirectoryCreationFailed()
}

// IsUserRequired is the interface to implement
// to specify that a user is required.
type IsUserRequired interface {
	IsUserRequired()
}

// IsInternalError is the interface to implement
// to specify a local programming error.
type IsInternalError interface {
	IsInternalError()
}

// Retryable checks whether err carries the IsRetryable marker anywhere in
// its chain. Wrapped errors (github.com/pkg/errors) keep their cause, so a
// plain type assertion against the cause is enough.
func Retryable(err error) bool {
	_, ok := cause(err).(IsRetryable)
	return ok
}

type causer interface {
	Cause() error
}

func cause(err error) error {
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return err
}
