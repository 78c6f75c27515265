// Package validation checks request fields before any call reaches the storage service.
//
// Every check fails with an error matching one of errors.ErrInvalidBucketName,
// errors.ErrInvalidObjectKey or errors.ErrInvalidInput.
package validation
