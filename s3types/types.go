// Package s3types provides shared type definitions for the s3kit module.
package s3types

import (
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier archival storage
	StorageClassGlacier StorageClass = "GLACIER"
)

// GetInput identifies one object to fetch.
type GetInput struct {
	// Bucket is the bucket name. Falls back to the client's default bucket when empty.
	Bucket string

	// Key is the object key
	Key string

	// Range is an optional HTTP byte range (e.g. "bytes=0-99")
	Range string
}

// PutInput describes one object to write.
type PutInput struct {
	// Bucket is the bucket name. Falls back to the client's default bucket when empty.
	Bucket string

	// Key is the object key
	Key string

	// Body is the object content. Ignored by PutFromFile.
	Body io.Reader

	// ContentType is the MIME type. Detected from the content when empty.
	ContentType string

	// Metadata contains user-defined metadata
	Metadata map[string]string

	// StorageClass is the S3 storage class
	StorageClass StorageClass
}

// CopyInput describes a server-side copy.
type CopyInput struct {
	// Bucket is the destination bucket. Falls back to the client's default bucket when empty.
	Bucket string

	// Key is the destination key
	Key string

	// SourceBucket is the bucket of the source object. Defaults to Bucket.
	SourceBucket string

	// SourceKey is the key of the source object
	SourceKey string

	// Metadata replaces the source metadata when non-nil
	Metadata map[string]string
}

// ListInput describes a listing request.
type ListInput struct {
	// Bucket is the bucket name. Falls back to the client's default bucket when empty.
	Bucket string

	// Prefix filters results to keys starting with this value
	Prefix string

	// Delimiter groups keys into common prefixes (e.g. "/")
	Delimiter string

	// StartAfter starts the listing after this key
	StartAfter string

	// ContinuationToken resumes a listing from a previous page (List only)
	ContinuationToken string

	// MaxKeys is the page size (1-1000, default 1000)
	MaxKeys int32
}

// Object is a fetched object with its content and metadata.
type Object struct {
	// Bucket is the bucket the object was fetched from
	Bucket string

	// Key is the object key
	Key string

	// Body is the object content
	Body []byte

	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// ETag is the S3 entity tag for the object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// LastModified is when the object was last modified
	LastModified time.Time

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// Entry is one object of a listing.
type Entry struct {
	// Bucket is the bucket the entry was listed from
	Bucket string

	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// StorageClass is the S3 storage class
	StorageClass string
}

// ListPage is a single page of a listing.
type ListPage struct {
	// Entries contains the listed objects
	Entries []Entry

	// CommonPrefixes contains the grouped prefixes when a delimiter was given
	CommonPrefixes []string

	// IsTruncated indicates if more pages remain
	IsTruncated bool

	// NextContinuationToken is the token for the next page, set only when IsTruncated
	NextContinuationToken string

	// Duration is how long the operation took
	Duration time.Duration
}

// ListStreamResult carries a streamed entry or the error that ended the stream.
type ListStreamResult struct {
	Entry Entry
	Err   error
}

// ObjectMetadata contains detailed metadata about an S3 object.
type ObjectMetadata struct {
	// Bucket is the bucket name
	Bucket string

	// Key is the object key
	Key string

	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// ProgressTracker defines the interface for tracking transfer progress.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// PutResult contains the result of a put operation.
type PutResult struct {
	// Bucket is the bucket the object was written to
	Bucket string

	// Key is the object key that was written
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Bucket is the bucket the object was read from
	Bucket string

	// Key is the S3 object key that was downloaded
	Key string

	// Size is the size of the downloaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the download took
	Duration time.Duration
}

// FileResult is returned by GetToFile once the local file is fully written.
type FileResult struct {
	// Input is the request that produced the file
	Input GetInput

	// Filename is the local path that was written
	Filename string

	// Size is the number of bytes written
	Size int64

	// ETag is the S3 entity tag of the object
	ETag string
}

// CopyResult contains the result of a copy operation.
type CopyResult struct {
	// Bucket is the destination bucket
	Bucket string

	// Key is the destination key
	Key string

	// ETag is the entity tag of the new object
	ETag string

	// LastModified is the modification time of the new object
	LastModified time.Time
}

// DeleteResult contains the result of a delete operation.
type DeleteResult struct {
	// Bucket is the bucket objects were deleted from
	Bucket string

	// Deleted contains the keys that were deleted
	Deleted []string

	// Errors contains any per-key errors reported by the storage service
	Errors []DeleteError

	// Duration is how long the operation took
	Duration time.Duration
}

// DeleteError represents a per-key failure of a delete operation.
type DeleteError struct {
	// Key is the S3 object key that failed to delete
	Key string

	// Code is the error code
	Code string

	// Message is the error message
	Message string
}

// Configuration types for functional options

// ClientConfig holds configuration for the s3kit client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	ForcePathStyle   bool
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	DefaultBucket    string
	Filesystem       fs.Filesystem
	Logger           *zerolog.Logger
	Registerer       prometheus.Registerer
}

// TransferOptionConfig holds configuration for file and stream transfers.
type TransferOptionConfig struct {
	ProgressTracker ProgressTracker
}

// BatchOptionConfig holds configuration for batch operations.
type BatchOptionConfig struct {
	Concurrency int
}

// Option is a functional option for configuring the s3kit client.
type (
	Option func(*ClientConfig)
	// TransferOption is a functional option for file and stream transfers.
	TransferOption func(*TransferOptionConfig)
	// BatchOption is a functional option for batch operations.
	BatchOption func(*BatchOptionConfig)
)
