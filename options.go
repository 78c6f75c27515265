package s3kit

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// WithRegion sets the AWS region.
// If not specified, the region from the credential chain is used, then us-east-1.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of attempts the SDK makes per request.
// Default is 3. Retries are performed by the SDK client, never by s3kit.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP client timeout for individual requests.
// Ignored when WithCustomHTTPClient is given.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default number of concurrent calls for batch operations.
// Default is 1, which runs batches serially. Values below 1 fail client construction.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Concurrency = concurrency
	}
}

// WithEndpoint sets a custom S3 endpoint URL, e.g. for LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style addressing instead of virtual-hosted style.
// This is required by most S3 compatible servers.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig replaces the default AWS configuration loading.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient sets the HTTP client used by the SDK.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithDefaultBucket sets the bucket used by requests that leave theirs empty.
func WithDefaultBucket(bucket string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DefaultBucket = bucket
	}
}

// WithFilesystem sets the filesystem used by PutFromFile and GetToFile.
// Defaults to the OS filesystem, where relative paths resolve against the working directory.
func WithFilesystem(filesystem fs.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the logger. Entries carry component=s3kit.
// Default is a no-op logger.
func WithLogger(logger zerolog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = &logger
	}
}

// WithMetrics registers the s3kit collectors with reg.
// Without it no metrics are recorded.
func WithMetrics(reg prometheus.Registerer) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Registerer = reg
	}
}

// WithProgress sets a progress tracker for a single transfer.
func WithProgress(tracker s3types.ProgressTracker) s3types.TransferOption {
	return func(c *s3types.TransferOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithBatchConcurrency overrides the client's concurrency for one batch call.
func WithBatchConcurrency(concurrency int) s3types.BatchOption {
	return func(c *s3types.BatchOptionConfig) {
		c.Concurrency = concurrency
	}
}
