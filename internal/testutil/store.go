package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/s3api"
)

type storedObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	storageClass string
	etag         string
	modified     time.Time
}

// MemoryStore is an in-memory bucket store implementing S3API.
// It is safe for concurrent use.
type MemoryStore struct {
	// Hook, when set, runs before every operation and fails it with the returned error.
	Hook func(op, bucket, key string) error

	// DeleteErrors makes DeleteObjects report a per-key failure with the mapped code.
	DeleteErrors map[string]string

	mu      sync.Mutex
	buckets map[string]map[string]*storedObject
	calls   map[string]int
}

// NewMemoryStore creates a store with the given buckets.
func NewMemoryStore(buckets ...string) *MemoryStore {
	s := &MemoryStore{
		DeleteErrors: map[string]string{},
		buckets:      map[string]map[string]*storedObject{},
		calls:        map[string]int{},
	}
	for _, b := range buckets {
		s.buckets[b] = map[string]*storedObject{}
	}
	return s
}

// Seed stores data under bucket/key, creating the bucket when needed.
func (s *MemoryStore) Seed(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buckets[bucket] == nil {
		s.buckets[bucket] = map[string]*storedObject{}
	}
	s.buckets[bucket][key] = &storedObject{
		data:         bytes.Clone(data),
		contentType:  "application/octet-stream",
		storageClass: string(types.ObjectStorageClassStandard),
		etag:         CalculateETag(data),
		modified:     time.Now().UTC(),
	}
}

// Keys returns the sorted keys of bucket.
func (s *MemoryStore) Keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.buckets[bucket])
}

// Data returns a copy of the stored content of bucket/key.
func (s *MemoryStore) Data(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Calls returns how often op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// begin records the call and runs the hook. Callers hold s.mu.
func (s *MemoryStore) begin(op, bucket, key string) (map[string]*storedObject, error) {
	s.calls[op]++
	if s.Hook != nil {
		if err := s.Hook(op, bucket, key); err != nil {
			return nil, err
		}
	}
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	return objects, nil
}

// ListObjectsV2 lists keys in lexical order. The continuation token is the last key or
// common prefix returned.
func (s *MemoryStore) ListObjectsV2(
	ctx context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := aws.ToString(params.Bucket)
	objects, err := s.begin("ListObjectsV2", bucket, "")
	if err != nil {
		return nil, err
	}

	prefix := aws.ToString(params.Prefix)
	delimiter := aws.ToString(params.Delimiter)
	maxKeys := int(aws.ToInt32(params.MaxKeys))
	if maxKeys <= 0 || maxKeys > 1000 {
		maxKeys = 1000
	}

	marker := aws.ToString(params.StartAfter)
	if token := aws.ToString(params.ContinuationToken); token != "" {
		marker = token
	}

	out := &s3.ListObjectsV2Output{
		Name:      params.Bucket,
		Prefix:    params.Prefix,
		Delimiter: params.Delimiter,
		MaxKeys:   aws.Int32(int32(maxKeys)),
	}

	count := 0
	last := ""
	seenPrefixes := map[string]bool{}
	truncated := false

	for _, key := range sortedKeys(objects) {
		if !strings.HasPrefix(key, prefix) || key <= marker {
			continue
		}
		if delimiter != "" && strings.HasSuffix(marker, delimiter) && strings.HasPrefix(key, marker) {
			continue
		}

		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if seenPrefixes[cp] {
					continue
				}
				if count == maxKeys {
					truncated = true
					break
				}
				seenPrefixes[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				count++
				last = cp
				continue
			}
		}

		if count == maxKeys {
			truncated = true
			break
		}

		obj := objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			ETag:         aws.String(obj.etag),
			LastModified: aws.Time(obj.modified),
			StorageClass: types.ObjectStorageClass(obj.storageClass),
		})
		count++
		last = key
	}

	out.KeyCount = aws.Int32(int32(count))
	out.IsTruncated = aws.Bool(truncated)
	if truncated {
		out.NextContinuationToken = aws.String(last)
	}
	return out, nil
}

// GetObject returns the stored object. A "bytes=a-b" range is honoured.
func (s *MemoryStore) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aws.ToString(params.Key)
	objects, err := s.begin("GetObject", aws.ToString(params.Bucket), key)
	if err != nil {
		return nil, err
	}
	obj, ok := objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	data := obj.data
	if r := aws.ToString(params.Range); r != "" {
		var start, end int
		if _, err := fmt.Sscanf(r, "bytes=%d-%d", &start, &end); err != nil || start > end || start >= len(data) {
			return nil, &smithy.GenericAPIError{Code: "InvalidRange", Message: "The requested range is not satisfiable"}
		}
		data = data[start:min(end+1, len(data))]
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(data))),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.modified),
		Metadata:      cloneMetadata(obj.metadata),
	}, nil
}

// HeadObject returns the stored object metadata.
func (s *MemoryStore) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aws.ToString(params.Key)
	objects, err := s.begin("HeadObject", aws.ToString(params.Bucket), key)
	if err != nil {
		return nil, err
	}
	obj, ok := objects[key]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.modified),
		Metadata:      cloneMetadata(obj.metadata),
	}, nil
}

// PutObject stores the request body.
func (s *MemoryStore) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	// Read outside the lock; the body may be slow.
	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := aws.ToString(params.Key)
	objects, err := s.begin("PutObject", aws.ToString(params.Bucket), key)
	if err != nil {
		return nil, err
	}

	storageClass := string(params.StorageClass)
	if storageClass == "" {
		storageClass = string(types.ObjectStorageClassStandard)
	}
	contentType := aws.ToString(params.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := &storedObject{
		data:         data,
		contentType:  contentType,
		metadata:     cloneMetadata(params.Metadata),
		storageClass: storageClass,
		etag:         CalculateETag(data),
		modified:     time.Now().UTC(),
	}
	objects[key] = obj

	return &s3.PutObjectOutput{ETag: aws.String(obj.etag)}, nil
}

// CopyObject copies an object between keys or buckets.
func (s *MemoryStore) CopyObject(
	ctx context.Context,
	params *s3.CopyObjectInput,
	_ ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aws.ToString(params.Key)
	objects, err := s.begin("CopyObject", aws.ToString(params.Bucket), key)
	if err != nil {
		return nil, err
	}

	source, err := url.PathUnescape(aws.ToString(params.CopySource))
	if err != nil {
		return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: err.Error()}
	}
	srcBucket, srcKey, ok := strings.Cut(strings.TrimPrefix(source, "/"), "/")
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "invalid copy source"}
	}
	srcObjects, ok := s.buckets[srcBucket]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	src, ok := srcObjects[srcKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	metadata := src.metadata
	if params.MetadataDirective == types.MetadataDirectiveReplace {
		metadata = params.Metadata
	}

	dst := &storedObject{
		data:         bytes.Clone(src.data),
		contentType:  src.contentType,
		metadata:     cloneMetadata(metadata),
		storageClass: src.storageClass,
		etag:         src.etag,
		modified:     time.Now().UTC(),
	}
	objects[key] = dst

	return &s3.CopyObjectOutput{
		CopyObjectResult: &types.CopyObjectResult{
			ETag:         aws.String(dst.etag),
			LastModified: aws.Time(dst.modified),
		},
	}, nil
}

// DeleteObject removes a key. Deleting a missing key succeeds.
func (s *MemoryStore) DeleteObject(
	ctx context.Context,
	params *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aws.ToString(params.Key)
	objects, err := s.begin("DeleteObject", aws.ToString(params.Bucket), key)
	if err != nil {
		return nil, err
	}
	delete(objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

// DeleteObjects removes a set of keys, reporting DeleteErrors entries as failures.
func (s *MemoryStore) DeleteObjects(
	ctx context.Context,
	params *s3.DeleteObjectsInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, err := s.begin("DeleteObjects", aws.ToString(params.Bucket), "")
	if err != nil {
		return nil, err
	}
	if params.Delete == nil || len(params.Delete.Objects) > 1000 {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "invalid delete request"}
	}

	out := &s3.DeleteObjectsOutput{}
	quiet := aws.ToBool(params.Delete.Quiet)
	for _, id := range params.Delete.Objects {
		key := aws.ToString(id.Key)
		if code, ok := s.DeleteErrors[key]; ok {
			out.Errors = append(out.Errors, types.Error{
				Key:     aws.String(key),
				Code:    aws.String(code),
				Message: aws.String("delete refused"),
			})
			continue
		}
		delete(objects, key)
		if !quiet {
			out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
		}
	}
	return out, nil
}

func sortedKeys(objects map[string]*storedObject) []string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Ensure MemoryStore implements s3api.S3API interface
var _ s3api.S3API = (*MemoryStore)(nil)
