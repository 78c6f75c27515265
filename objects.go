package s3kit

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/copy"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/runner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// Operation names used in errors, logs and metrics.
const (
	opGet         = "get"
	opGetMany     = "getMany"
	opPut         = "put"
	opPutFromFile = "putFromFile"
	opGetToFile   = "getToFile"
	opDownload    = "download"
	opCopy        = "copy"
	opDelete      = "delete"
	opDeleteMany  = "deleteMany"
	opHead        = "head"
	opExists      = "exists"
	opList        = "list"
	opListAll     = "listAll"
	opListStream  = "listStream"
)

func (c *Client) resolveBucket(bucket string) string {
	if bucket == "" {
		return c.config.DefaultBucket
	}
	return bucket
}

// track records the outcome of op and turns a failure into an *errors.Error.
// It is deferred with a pointer to the caller's named error result.
func (c *Client) track(op, bucket, key string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	err := *errp
	c.metrics.Observe(op, err, elapsed)

	if err == nil {
		c.logger.Debug().
			Str("op", op).
			Str("bucket", bucket).
			Str("key", key).
			Dur("duration", elapsed).
			Msg("operation complete")
		return
	}

	wrapped, ok := err.(*errors.Error)
	if !ok {
		wrapped = errors.NewObjectError(op, bucket, key, err)
	}
	if wrapped.Bucket == "" {
		wrapped.Bucket = bucket
	}
	if wrapped.Key == "" {
		wrapped.Key = key
	}
	*errp = wrapped

	c.logger.Warn().
		Err(err).
		Str("op", op).
		Str("bucket", bucket).
		Str("key", key).
		Str("code", string(errors.CodeOf(wrapped))).
		Dur("duration", elapsed).
		Msg("operation failed")
}

func transferConfig(opts []s3types.TransferOption) s3types.TransferOptionConfig {
	var cfg s3types.TransferOptionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c *Client) runnerOptions(name string, opts []s3types.BatchOption) []runner.Option {
	cfg := s3types.BatchOptionConfig{Concurrency: c.config.Concurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	return []runner.Option{
		runner.WithConcurrency(cfg.Concurrency),
		runner.WithObserver(c.metrics),
		runner.WithLogger(c.logger),
		runner.WithName(name),
	}
}

// Get fetches one object into memory.
//
// The returned record carries the bucket and key it was fetched from. Only use Get for
// objects that fit in memory; Download and GetToFile stream.
//
// Errors:
//   - ErrInvalidBucketName, ErrInvalidObjectKey: the request is malformed
//   - ErrObjectNotFound, ErrBucketNotFound, ErrAccessDenied: classified remote failures
//
// Example:
//
//	obj, err := client.Get(ctx, s3types.GetInput{Bucket: "my-bucket", Key: "config.json"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(string(obj.Body))
func (c *Client) Get(ctx context.Context, in s3types.GetInput) (obj *s3types.Object, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opGet, bucket, in.Key, time.Now(), &err)

	if err = validation.Object(bucket, in.Key); err != nil {
		return nil, err
	}

	return c.downloader.Get(ctx, &download.Config{
		Bucket: bucket,
		Key:    in.Key,
		Range:  in.Range,
	})
}

// GetMany fetches every input with Get, running at most the configured number of
// requests at a time, and returns the objects in input order.
//
// The concurrency defaults to the client's WithConcurrency value and can be set per
// call with WithBatchConcurrency. The first failing request fails the whole call with
// an error wrapping *errors.BatchError; requests still in flight are cancelled and no
// partial results are returned. An empty input returns an empty slice.
func (c *Client) GetMany(
	ctx context.Context,
	inputs []s3types.GetInput,
	opts ...s3types.BatchOption,
) (objects []*s3types.Object, err error) {
	defer c.track(opGetMany, "", "", time.Now(), &err)

	objects, err = runner.Run[s3types.GetInput, *s3types.Object](ctx, inputs, c.Get, c.runnerOptions(opGetMany, opts)...)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("objects", len(objects)).Msg("batch get complete")
	return objects, nil
}

// Put writes the content of in.Body to an object.
// The content type is detected from the first bytes of the body when in.ContentType is empty.
func (c *Client) Put(
	ctx context.Context,
	in s3types.PutInput,
	opts ...s3types.TransferOption,
) (result *s3types.PutResult, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opPut, bucket, in.Key, time.Now(), &err)

	if err = validatePut(bucket, in); err != nil {
		return nil, err
	}

	return c.uploader.Upload(ctx, uploadConfig(bucket, in, opts), in.Body)
}

func validatePut(bucket string, in s3types.PutInput) error {
	if err := validation.Object(bucket, in.Key); err != nil {
		return err
	}
	if err := validation.Metadata(in.Metadata); err != nil {
		return err
	}
	return validation.ContentType(in.ContentType)
}

func uploadConfig(bucket string, in s3types.PutInput, opts []s3types.TransferOption) *upload.Config {
	return &upload.Config{
		Bucket:          bucket,
		Key:             in.Key,
		ContentType:     in.ContentType,
		Metadata:        in.Metadata,
		StorageClass:    in.StorageClass,
		ProgressTracker: transferConfig(opts).ProgressTracker,
	}
}

// Download streams an object into w without buffering it in memory.
// Failures writing to w match errors.ErrLocalIO.
func (c *Client) Download(
	ctx context.Context,
	in s3types.GetInput,
	w io.Writer,
	opts ...s3types.TransferOption,
) (result *s3types.DownloadResult, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opDownload, bucket, in.Key, time.Now(), &err)

	if err = validation.Object(bucket, in.Key); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.NewError(opDownload, errors.ErrInvalidInput).WithMessage("writer cannot be nil")
	}

	return c.downloader.Download(ctx, &download.Config{
		Bucket:          bucket,
		Key:             in.Key,
		Range:           in.Range,
		ProgressTracker: transferConfig(opts).ProgressTracker,
	}, w)
}

// Copy copies an object server-side. SourceBucket defaults to the destination bucket.
// Copying an object onto itself is refused unless in.Metadata replaces its metadata.
func (c *Client) Copy(ctx context.Context, in s3types.CopyInput) (result *s3types.CopyResult, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opCopy, bucket, in.Key, time.Now(), &err)

	srcBucket := in.SourceBucket
	if srcBucket == "" {
		srcBucket = bucket
	}

	if err = validation.Object(srcBucket, in.SourceKey); err != nil {
		return nil, err
	}
	if err = validation.Object(bucket, in.Key); err != nil {
		return nil, err
	}
	if err = validation.Metadata(in.Metadata); err != nil {
		return nil, err
	}

	return c.copier.Copy(ctx, &copy.Config{
		SourceBucket: srcBucket,
		SourceKey:    in.SourceKey,
		Bucket:       bucket,
		Key:          in.Key,
		Metadata:     in.Metadata,
	})
}

// Delete removes one object. Removing a key that does not exist succeeds.
func (c *Client) Delete(ctx context.Context, bucket, key string) (err error) {
	bucket = c.resolveBucket(bucket)
	defer c.track(opDelete, bucket, key, time.Now(), &err)

	if err = validation.Object(bucket, key); err != nil {
		return err
	}
	return c.deleter.Delete(ctx, bucket, key)
}

// DeleteMany removes keys with batch requests of at most 1000 keys each. The requests
// run through the same bounded concurrency runner as GetMany.
//
// Keys the service refuses individually are listed in the result's Errors and do not
// fail the call. A failed request does.
//
// Example:
//
//	result, err := client.DeleteMany(ctx, "my-bucket", keys, s3kit.WithBatchConcurrency(4))
//	if err != nil {
//	    return err
//	}
//	for _, e := range result.Errors {
//	    log.Printf("could not delete %s: %s", e.Key, e.Code)
//	}
func (c *Client) DeleteMany(
	ctx context.Context,
	bucket string,
	keys []string,
	opts ...s3types.BatchOption,
) (result *s3types.DeleteResult, err error) {
	bucket = c.resolveBucket(bucket)
	defer c.track(opDeleteMany, bucket, "", time.Now(), &err)

	if err = validation.BucketName(bucket); err != nil {
		return nil, err
	}
	if err = validation.Keys(keys); err != nil {
		return nil, err
	}

	result, err = c.deleter.DeleteMany(ctx, bucket, keys, c.runnerOptions(opDeleteMany, opts)...)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("bucket", bucket).
		Int("deleted", len(result.Deleted)).
		Int("failed", len(result.Errors)).
		Msg("batch delete complete")
	return result, nil
}

// Head returns an object's metadata without fetching its content.
func (c *Client) Head(ctx context.Context, bucket, key string) (meta *s3types.ObjectMetadata, err error) {
	bucket = c.resolveBucket(bucket)
	defer c.track(opHead, bucket, key, time.Now(), &err)

	if err = validation.Object(bucket, key); err != nil {
		return nil, err
	}

	output, err := c.head(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	return &s3types.ObjectMetadata{
		Bucket:        bucket,
		Key:           key,
		ContentType:   aws.ToString(output.ContentType),
		ContentLength: aws.ToInt64(output.ContentLength),
		LastModified:  aws.ToTime(output.LastModified),
		ETag:          aws.ToString(output.ETag),
		Metadata:      output.Metadata,
	}, nil
}

// Exists reports whether an object exists. A missing object is not an error.
func (c *Client) Exists(ctx context.Context, bucket, key string) (exists bool, err error) {
	bucket = c.resolveBucket(bucket)
	defer c.track(opExists, bucket, key, time.Now(), &err)

	if err = validation.Object(bucket, key); err != nil {
		return false, err
	}

	if _, err = c.head(ctx, bucket, key); err != nil {
		if errors.IsObjectNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) head(ctx context.Context, bucket, key string) (*s3.HeadObjectOutput, error) {
	output, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.FromRemote(err)
	}
	if output == nil {
		return nil, errors.ErrInvalidResponse
	}
	return output, nil
}
