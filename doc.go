// Package s3kit is a convenience layer over an S3 compatible object storage client.
//
// It wraps an aws-sdk-go-v2 S3 client (or a MinIO client through an adapter) and
// removes the boilerplate of everyday bucket and object calls:
//   - get, put, copy, delete, head and exists for single objects
//   - bounded-concurrency batch retrieval with GetMany
//   - chunked batch deletion with DeleteMany
//   - full listings with automatic continuation token handling
//   - streaming between objects and local files through a pluggable filesystem
//
// The SDK client stays responsible for the wire protocol, authentication and retries.
// Every failure is returned as an *errors.Error carrying the operation, bucket, key and
// local path involved, and can be classified with the errors package helpers.
//
// Example usage:
//
//	client, err := s3kit.New(
//	    s3kit.WithRegion("eu-central-1"),
//	    s3kit.WithDefaultBucket("artifacts"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	objects, err := client.GetMany(ctx, []s3types.GetInput{
//	    {Key: "a.json"},
//	    {Key: "b.json"},
//	}, s3kit.WithBatchConcurrency(4))
//	if err != nil {
//	    return err
//	}
package s3kit
