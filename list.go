package s3kit

import (
	"context"
	"fmt"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

func listConfig(bucket string, in s3types.ListInput) *list.Config {
	return &list.Config{
		Bucket:            bucket,
		Prefix:            in.Prefix,
		Delimiter:         in.Delimiter,
		StartAfter:        in.StartAfter,
		ContinuationToken: in.ContinuationToken,
		MaxKeys:           in.MaxKeys,
	}
}

// List fetches a single page. Pass the returned NextContinuationToken back in
// in.ContinuationToken to fetch the following page.
func (c *Client) List(ctx context.Context, in s3types.ListInput) (page *s3types.ListPage, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opList, bucket, in.Prefix, time.Now(), &err)

	if err = validation.BucketName(bucket); err != nil {
		return nil, err
	}
	return c.lister.List(ctx, listConfig(bucket, in))
}

// ListAll follows continuation tokens until the listing is exhausted and returns every
// entry in listing order, each annotated with its bucket.
//
// A failing page discards the entries gathered so far; the error names the bucket,
// prefix and page number. in.ContinuationToken resumes a listing part way.
//
// Example:
//
//	entries, err := client.ListAll(ctx, s3types.ListInput{Bucket: "logs", Prefix: "2024/"})
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    fmt.Println(e.Key, e.Size)
//	}
func (c *Client) ListAll(ctx context.Context, in s3types.ListInput) (entries []s3types.Entry, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opListAll, bucket, in.Prefix, time.Now(), &err)

	if err = validation.BucketName(bucket); err != nil {
		return nil, err
	}

	entries, err = c.lister.ListAll(ctx, listConfig(bucket, in))
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("bucket", bucket).
		Str("prefix", in.Prefix).
		Int("entries", len(entries)).
		Msg("listing complete")
	return entries, nil
}

// ListStream delivers entries on a channel as pages arrive. A failure is delivered as
// the last result, with Err set, before the channel closes.
func (c *Client) ListStream(ctx context.Context, in s3types.ListInput) <-chan s3types.ListStreamResult {
	bucket := c.resolveBucket(in.Bucket)

	if err := validation.BucketName(bucket); err != nil {
		results := make(chan s3types.ListStreamResult, 1)
		results <- s3types.ListStreamResult{Err: errors.NewObjectError(opListStream, bucket, in.Prefix, err)}
		close(results)
		return results
	}

	start := time.Now()
	out := make(chan s3types.ListStreamResult, 1)
	go func() {
		defer close(out)

		fail := func(err error) {
			c.track(opListStream, bucket, in.Prefix, start, &err)
			list.SendLast(out, err)
		}

		for r := range c.lister.Stream(ctx, listConfig(bucket, in)) {
			if r.Err != nil {
				fail(r.Err)
				return
			}
			if ctx.Err() != nil {
				fail(fmt.Errorf("list stream: %w", errors.FromRemote(ctx.Err())))
				return
			}
			select {
			case out <- r:
			case <-ctx.Done():
				fail(fmt.Errorf("list stream: %w", errors.FromRemote(ctx.Err())))
				return
			}
		}

		var err error
		c.track(opListStream, bucket, in.Prefix, start, &err)
	}()
	return out
}
