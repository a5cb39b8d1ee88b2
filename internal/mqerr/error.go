// Package mqerr defines the error types shared between the mergeq packages.
package mqerr

import (
	"fmt"
)

// ConfigError is returned when a required configuration option is missing or
// has an invalid value. The process must not start when it happens.
type ConfigError struct {
	// Option is the name of the configuration option
	Option string
	Reason string
}

func NewConfigError(option, reason string) *ConfigError {
	return &ConfigError{Option: option, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration option %s: %s", e.Option, e.Reason)
}

// RemoteFetchError is returned when retrieving state from GitHub (pull request
// details, commit status) failed.
// The merge attempt that caused it is abandoned without modifying the queue.
type RemoteFetchError struct {
	// Op is a short description of the operation, e.g. "fetch pull request"
	Op string
	// URL identifies the remote resource.
	URL string
	// Err is the wrapped original error
	Err error
}

func NewRemoteFetchError(op, url string, originalErr error) *RemoteFetchError {
	return &RemoteFetchError{Op: op, URL: url, Err: originalErr}
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Op, e.URL, e.Err)
}

// RemoteActionError is returned when an operation that changes state on
// GitHub (merge, branch update) failed.
// The queue still advances when it happens.
type RemoteActionError struct {
	Op  string
	URL string
	Err error
}

func NewRemoteActionError(op, url string, originalErr error) *RemoteActionError {
	return &RemoteActionError{Op: op, URL: url, Err: originalErr}
}

func (e *RemoteActionError) Unwrap() error {
	return e.Err
}

func (e *RemoteActionError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Op, e.URL, e.Err)
}

// NotificationError is returned when posting a comment failed.
// It is only logged, never propagated to queue processing.
type NotificationError struct {
	URL string
	Err error
}

func NewNotificationError(url string, originalErr error) *NotificationError {
	return &NotificationError{URL: url, Err: originalErr}
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("posting comment to %s failed: %s", e.URL, e.Err)
}
