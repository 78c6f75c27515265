// Package minioapi adapts a minio-go client to the s3api.S3API contract so the s3kit
// operations can run against MinIO and other S3 compatible servers.
package minioapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/s3api"
)

var _ s3api.S3API = (*Client)(nil)

// Client implements s3api.S3API on top of *minio.Client.
type Client struct {
	mc   *minio.Client
	core *minio.Core
}

// New wraps mc.
func New(mc *minio.Client) *Client {
	return &Client{
		mc:   mc,
		core: &minio.Core{Client: mc},
	}
}

// remoteError carries a MinIO error response as a smithy API error so the s3kit
// error classification applies unchanged.
type remoteError struct {
	code    string
	message string
	err     error
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("minio: %s: %s", e.code, e.message)
}

func (e *remoteError) Unwrap() error { return e.err }
func (e *remoteError) ErrorCode() string { return e.code }
func (e *remoteError) ErrorMessage() string { return e.message }
func (e *remoteError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

// translate converts a minio error into a smithy.APIError when it carries an error code.
func translate(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "" {
		return err
	}
	return &remoteError{code: resp.Code, message: resp.Message, err: err}
}

// ListObjectsV2 lists one page through the low level V2 listing call.
func (c *Client) ListObjectsV2(
	ctx context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	// The core listing call does not take a context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.core.ListObjectsV2(
		aws.ToString(params.Bucket),
		aws.ToString(params.Prefix),
		aws.ToString(params.StartAfter),
		aws.ToString(params.ContinuationToken),
		aws.ToString(params.Delimiter),
		int(aws.ToInt32(params.MaxKeys)),
	)
	if err != nil {
		return nil, translate(err)
	}
	return toListOutput(result), nil
}

func toListOutput(result minio.ListBucketV2Result) *s3.ListObjectsV2Output {
	out := &s3.ListObjectsV2Output{
		Name:        aws.String(result.Name),
		Prefix:      aws.String(result.Prefix),
		IsTruncated: aws.Bool(result.IsTruncated),
		KeyCount:    aws.Int32(int32(len(result.Contents))),
		Contents:    make([]types.Object, 0, len(result.Contents)),
	}
	if result.NextContinuationToken != "" {
		out.NextContinuationToken = aws.String(result.NextContinuationToken)
	}

	for _, info := range result.Contents {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(info.Key),
			Size:         aws.Int64(info.Size),
			ETag:         aws.String(info.ETag),
			LastModified: aws.Time(info.LastModified),
			StorageClass: types.ObjectStorageClass(info.StorageClass),
		})
	}
	for _, p := range result.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p.Prefix)})
	}
	return out
}

// GetObject opens the object and stats it so missing objects fail here rather than on
// the first read.
func (c *Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	opts := minio.GetObjectOptions{}
	if r := aws.ToString(params.Range); r != "" {
		opts.Set("Range", r)
	}

	obj, err := c.mc.GetObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), opts)
	if err != nil {
		return nil, translate(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, translate(err)
	}

	return &s3.GetObjectOutput{
		Body:          obj,
		ContentLength: aws.Int64(info.Size),
		ContentType:   optional(info.ContentType),
		ETag:          optional(info.ETag),
		VersionId:     optional(info.VersionID),
		LastModified:  optionalTime(info.LastModified),
		Metadata:      info.UserMetadata,
	}, nil
}

// HeadObject stats the object.
func (c *Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	info, err := c.mc.StatObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), minio.StatObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(info.Size),
		ContentType:   optional(info.ContentType),
		ETag:          optional(info.ETag),
		VersionId:     optional(info.VersionID),
		LastModified:  optionalTime(info.LastModified),
		Metadata:      info.UserMetadata,
		StorageClass:  types.StorageClass(info.StorageClass),
	}, nil
}

// PutObject streams the body. A missing ContentLength lets minio buffer the upload.
func (c *Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	size := int64(-1)
	if params.ContentLength != nil {
		size = *params.ContentLength
	}

	opts := minio.PutObjectOptions{
		ContentType:  aws.ToString(params.ContentType),
		UserMetadata: params.Metadata,
		StorageClass: string(params.StorageClass),
	}

	body := params.Body
	if body == nil {
		body = strings.NewReader("")
		size = 0
	}

	info, err := c.mc.PutObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), body, size, opts)
	if err != nil {
		return nil, translate(err)
	}

	return &s3.PutObjectOutput{
		ETag:      optional(info.ETag),
		VersionId: optional(info.VersionID),
	}, nil
}

// CopyObject performs a server-side copy.
func (c *Client) CopyObject(
	ctx context.Context,
	params *s3.CopyObjectInput,
	_ ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	srcBucket, srcKey, err := ParseCopySource(aws.ToString(params.CopySource))
	if err != nil {
		return nil, err
	}

	dst := minio.CopyDestOptions{
		Bucket: aws.ToString(params.Bucket),
		Object: aws.ToString(params.Key),
	}
	if params.MetadataDirective == types.MetadataDirectiveReplace {
		dst.ReplaceMetadata = true
		dst.UserMetadata = params.Metadata
	}

	info, err := c.mc.CopyObject(ctx, dst, minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey})
	if err != nil {
		return nil, translate(err)
	}

	return &s3.CopyObjectOutput{
		CopyObjectResult: &types.CopyObjectResult{
			ETag:         optional(info.ETag),
			LastModified: optionalTime(info.LastModified),
		},
		VersionId: optional(info.VersionID),
	}, nil
}

// ParseCopySource splits an x-amz-copy-source value into bucket and key.
func ParseCopySource(source string) (bucket, key string, err error) {
	unescaped, err := url.PathUnescape(source)
	if err != nil {
		return "", "", fmt.Errorf("invalid copy source %q: %w", source, err)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(unescaped, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid copy source %q", source)
	}
	return bucket, key, nil
}

// DeleteObject removes a single object.
func (c *Client) DeleteObject(
	ctx context.Context,
	params *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	err := c.mc.RemoveObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), minio.RemoveObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	return &s3.DeleteObjectOutput{}, nil
}

// DeleteObjects removes the listed keys and reports per-key failures.
func (c *Client) DeleteObjects(
	ctx context.Context,
	params *s3.DeleteObjectsInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	if params.Delete == nil {
		return nil, fmt.Errorf("delete objects: no keys given")
	}

	keys := make([]string, 0, len(params.Delete.Objects))
	objects := make(chan minio.ObjectInfo, len(params.Delete.Objects))
	for _, id := range params.Delete.Objects {
		key := aws.ToString(id.Key)
		keys = append(keys, key)
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	failures := map[string]minio.RemoveObjectError{}
	for rerr := range c.mc.RemoveObjects(ctx, aws.ToString(params.Bucket), objects, minio.RemoveObjectsOptions{}) {
		failures[rerr.ObjectName] = rerr
	}

	if err := requestFailure(keys, failures); err != nil {
		return nil, err
	}
	return toDeleteOutput(keys, failures, aws.ToBool(params.Delete.Quiet)), nil
}

// bucketCodes are failures MinIO repeats for every key when the whole request was rejected.
var bucketCodes = map[string]bool{
	"NoSuchBucket":      true,
	"InvalidBucketName": true,
	"AllAccessDisabled": true,
}

// requestFailure returns the request level error when every key failed with the same
// bucket level code, nil otherwise.
func requestFailure(keys []string, failures map[string]minio.RemoveObjectError) error {
	if len(keys) == 0 {
		return nil
	}

	var first minio.ErrorResponse
	for i, key := range keys {
		rerr, failed := failures[key]
		if !failed {
			return nil
		}
		resp := minio.ToErrorResponse(rerr.Err)
		if !bucketCodes[resp.Code] {
			return nil
		}
		if i == 0 {
			first = resp
			continue
		}
		if resp.Code != first.Code {
			return nil
		}
	}

	return &remoteError{code: first.Code, message: first.Message, err: failures[keys[0]].Err}
}

func toDeleteOutput(keys []string, failures map[string]minio.RemoveObjectError, quiet bool) *s3.DeleteObjectsOutput {
	out := &s3.DeleteObjectsOutput{}
	for _, key := range keys {
		if rerr, failed := failures[key]; failed {
			resp := minio.ToErrorResponse(rerr.Err)
			code := resp.Code
			if code == "" {
				code = "InternalError"
			}
			message := resp.Message
			if message == "" && rerr.Err != nil {
				message = rerr.Err.Error()
			}
			out.Errors = append(out.Errors, types.Error{
				Key:     aws.String(key),
				Code:    aws.String(code),
				Message: aws.String(message),
			})
			continue
		}
		if !quiet {
			out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return aws.Time(t)
}
