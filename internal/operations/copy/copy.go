package copy

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// Client defines the S3 operation the copier needs.
type Client interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Copier handles server-side copy operations.
type Copier struct {
	client Client
}

// NewCopier creates a new copy operation handler.
func NewCopier(client Client) *Copier {
	return &Copier{
		client: client,
	}
}

// Config describes one copy.
type Config struct {
	SourceBucket string
	SourceKey    string
	Bucket       string
	Key          string

	// Metadata replaces the source metadata when non-nil.
	Metadata map[string]string

	StorageClass s3types.StorageClass
}

// Copy copies SourceBucket/SourceKey to Bucket/Key without moving data through the client.
// Copying an object onto itself is only allowed when it replaces the metadata.
func (c *Copier) Copy(ctx context.Context, config *Config) (*s3types.CopyResult, error) {
	if config.SourceBucket == config.Bucket && config.SourceKey == config.Key && config.Metadata == nil {
		return nil, fmt.Errorf("source and destination are the same object: %w", errors.ErrInvalidInput)
	}

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(config.Bucket),
		Key:        aws.String(config.Key),
		CopySource: aws.String(CopySource(config.SourceBucket, config.SourceKey)),
	}

	if config.Metadata != nil {
		input.Metadata = config.Metadata
		input.MetadataDirective = awstypes.MetadataDirectiveReplace
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}

	output, err := c.client.CopyObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("copy from %s/%s: %w", config.SourceBucket, config.SourceKey, errors.FromRemote(err))
	}

	result := &s3types.CopyResult{
		Bucket: config.Bucket,
		Key:    config.Key,
	}
	if output != nil && output.CopyObjectResult != nil {
		result.ETag = aws.ToString(output.CopyObjectResult.ETag)
		result.LastModified = aws.ToTime(output.CopyObjectResult.LastModified)
	}

	return result, nil
}

// CopySource encodes bucket and key as the x-amz-copy-source value.
// Each key segment is escaped; the separators are kept.
func CopySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}
