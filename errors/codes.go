package errors

// ErrorCode classifies an s3kit failure.
// Codes are string-based so they read well in logs and serialize naturally.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates the bucket or object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates a resource state conflict that prevents the operation.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates a request field is missing or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates the client could not be constructed from its configuration.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeLocalIO indicates a local filesystem access or stream failure.
	CodeLocalIO ErrorCode = "LOCAL_IO"

	// CodeRemote indicates the storage collaborator rejected or failed the call.
	CodeRemote ErrorCode = "REMOTE_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit or was cancelled.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the collaborator throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Execution errors.

	// CodeBatchFailed indicates one work item of a batch failed and aborted the batch.
	CodeBatchFailed ErrorCode = "BATCH_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf returns the code that best describes err.
// It inspects the error chain for sentinel errors and s3kit error types.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var e *Error
	if As(err, &e) && e.Code != "" {
		return e.Code
	}

	var be *BatchError
	if As(err, &be) {
		return CodeBatchFailed
	}

	switch {
	case Is(err, ErrInvalidClient):
		return CodeInvalidConfig
	case Is(err, ErrInvalidInput), Is(err, ErrInvalidBucketName), Is(err, ErrInvalidObjectKey):
		return CodeInvalidInput
	case Is(err, ErrLocalIO):
		return CodeLocalIO
	case Is(err, ErrObjectNotFound), Is(err, ErrBucketNotFound):
		return CodeNotFound
	case Is(err, ErrAccessDenied):
		return CodeForbidden
	case Is(err, ErrTooManyRequests):
		return CodeRateLimit
	case Is(err, ErrTimeout):
		return CodeTimeout
	case Is(err, ErrBucketNotEmpty):
		return CodeConflict
	}

	if e != nil {
		return CodeRemote
	}
	return CodeUnknown
}
