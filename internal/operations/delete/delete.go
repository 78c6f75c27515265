package delete

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/runner"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// MaxBatchSize is the largest number of keys one DeleteObjects request accepts.
const MaxBatchSize = 1000

// Client defines the S3 operations the deleter needs.
type Client interface {
	DeleteObjects(
		ctx context.Context,
		input *s3.DeleteObjectsInput,
		opts ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
	DeleteObject(
		ctx context.Context,
		input *s3.DeleteObjectInput,
		opts ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
}

// BatchDeleter handles single and batch deletion of S3 objects.
type BatchDeleter struct {
	client       Client
	maxBatchSize int
}

// New creates a new BatchDeleter.
func New(client Client) *BatchDeleter {
	return &BatchDeleter{
		client:       client,
		maxBatchSize: MaxBatchSize,
	}
}

// Delete removes a single object. Removing a missing key is not an error.
func (b *BatchDeleter) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", errors.FromRemote(err))
	}
	return nil
}

// DeleteMany removes keys in chunks of at most MaxBatchSize, running the chunk requests
// through the runner with the given options.
//
// Keys the service refuses individually are reported in the result's Errors. A failed
// request fails the whole call with a *errors.BatchError naming the chunk.
func (b *BatchDeleter) DeleteMany(
	ctx context.Context,
	bucket string,
	keys []string,
	opts ...runner.Option,
) (*s3types.DeleteResult, error) {
	start := time.Now()
	result := &s3types.DeleteResult{
		Bucket:  bucket,
		Deleted: make([]string, 0, len(keys)),
		Errors:  make([]s3types.DeleteError, 0),
	}
	if len(keys) == 0 {
		return result, nil
	}

	chunks := b.splitIntoBatches(keys)
	worker := func(ctx context.Context, chunk []string) (*s3types.DeleteResult, error) {
		return b.deleteBatchDirect(ctx, bucket, chunk)
	}

	opts = append([]runner.Option{runner.WithName("delete-many")}, opts...)
	chunkResults, err := runner.Run[[]string, *s3types.DeleteResult](ctx, chunks, worker, opts...)
	if err != nil {
		return nil, err
	}

	for _, r := range chunkResults {
		result.Deleted = append(result.Deleted, r.Deleted...)
		result.Errors = append(result.Errors, r.Errors...)
	}
	result.Duration = time.Since(start)

	return result, nil
}

// deleteBatchDirect issues one DeleteObjects request.
func (b *BatchDeleter) deleteBatchDirect(
	ctx context.Context,
	bucket string,
	keys []string,
) (*s3types.DeleteResult, error) {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{
			Key: aws.String(key),
		})
	}

	output, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("delete objects: %w", errors.FromRemote(err))
	}
	if output == nil {
		return nil, fmt.Errorf("delete objects: empty response: %w", errors.ErrInvalidResponse)
	}

	return convertOutput(bucket, output), nil
}

func convertOutput(bucket string, output *s3.DeleteObjectsOutput) *s3types.DeleteResult {
	result := &s3types.DeleteResult{
		Bucket:  bucket,
		Deleted: make([]string, 0, len(output.Deleted)),
		Errors:  make([]s3types.DeleteError, 0, len(output.Errors)),
	}

	for _, deleted := range output.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(deleted.Key))
	}
	for _, e := range output.Errors {
		result.Errors = append(result.Errors, s3types.DeleteError{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}

	return result
}

// splitIntoBatches splits keys into chunks of at most maxBatchSize.
func (b *BatchDeleter) splitIntoBatches(keys []string) [][]string {
	batches := make([][]string, 0, (len(keys)+b.maxBatchSize-1)/b.maxBatchSize)
	for i := 0; i < len(keys); i += b.maxBatchSize {
		end := min(i+b.maxBatchSize, len(keys))
		batches = append(batches, keys[i:end])
	}
	return batches
}
