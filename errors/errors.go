// Package errors provides error types and handling for s3kit operations.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Error represents an s3kit operation error with context about the operation that failed.
// It wraps the underlying SDK, filesystem or validation error with the request parameters.
type Error struct {
	// Op is the operation that failed (e.g., "get", "putFromFile", "listAll")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Path is the local filesystem path (if applicable)
	Path string

	// Code classifies the failure. Empty means it is derived from Err.
	Code ErrorCode

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("s3kit.")
	b.WriteString(e.Op)

	switch {
	case e.Bucket != "" && e.Key != "":
		fmt.Fprintf(&b, " %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		fmt.Fprintf(&b, " bucket %s", e.Bucket)
	case e.Key != "":
		fmt.Fprintf(&b, " object %s", e.Key)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %s)", e.Path)
	}

	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPath adds local path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithCode sets the error classification.
func (e *Error) WithCode(code ErrorCode) *Error {
	e.Code = code
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewLocalError creates a new Error for a failed local filesystem operation.
// The returned error matches ErrLocalIO and still unwraps to err.
func NewLocalError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Code: CodeLocalIO,
		Err:  &localIOError{err: err},
	}
}

// localIOError tags a filesystem error so it matches ErrLocalIO without losing the cause.
type localIOError struct {
	err error
}

func (l *localIOError) Error() string { return "local io: " + l.err.Error() }

func (l *localIOError) Unwrap() []error { return []error{ErrLocalIO, l.err} }

// BatchError reports the first failed work item of a batch.
// Results of other items are discarded when a BatchError is returned.
type BatchError struct {
	// Index is the position of the failing descriptor in the input sequence
	Index int

	// Err is the error returned by the worker for that descriptor
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("s3kit: batch item %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the worker error.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidClient indicates the storage collaborator handle is missing or unusable
	ErrInvalidClient = stderrors.New("s3kit: invalid storage client")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = stderrors.New("s3kit: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = stderrors.New("s3kit: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = stderrors.New("s3kit: invalid object key")

	// ErrLocalIO indicates a local file could not be read, created or written
	ErrLocalIO = stderrors.New("s3kit: local io failure")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = stderrors.New("s3kit: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = stderrors.New("s3kit: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = stderrors.New("s3kit: access denied")

	// ErrBucketNotEmpty indicates that the bucket is not empty
	ErrBucketNotEmpty = stderrors.New("s3kit: bucket not empty")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = stderrors.New("s3kit: too many requests")

	// ErrTimeout indicates that the operation timed out or was cancelled
	ErrTimeout = stderrors.New("s3kit: operation timeout")

	// ErrInvalidResponse indicates the collaborator returned an inconsistent response
	ErrInvalidResponse = stderrors.New("s3kit: invalid response from storage")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// FromRemote maps a collaborator error onto the s3kit sentinels where the API error code
// is recognised. The original error stays in the chain.
func FromRemote(err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var apiErr smithy.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	case "BucketNotEmpty":
		return fmt.Errorf("%w: %w", ErrBucketNotEmpty, err)
	case "SlowDown", "TooManyRequests", "RequestLimitExceeded":
		return fmt.Errorf("%w: %w", ErrTooManyRequests, err)
	}
	return err
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return stderrors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return stderrors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return stderrors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return stderrors.Is(err, ErrInvalidInput) ||
		stderrors.Is(err, ErrInvalidBucketName) ||
		stderrors.Is(err, ErrInvalidObjectKey)
}

// IsLocalIO checks if an error was caused by the local filesystem.
func IsLocalIO(err error) bool {
	return stderrors.Is(err, ErrLocalIO)
}
