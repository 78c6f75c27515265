package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/testutil"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// streamOnly hides any Seek method of the wrapped reader.
type streamOnly struct {
	r io.Reader
}

func (s streamOnly) Read(p []byte) (int, error) { return s.r.Read(p) }

// flakyFile fails every read after the first n bytes.
type flakyFile struct {
	*bytes.Reader
	n int
}

func (f *flakyFile) Read(p []byte) (int, error) {
	pos := int(f.Size()) - f.Len()
	if pos >= f.n {
		return 0, stderrors.New("input/output error")
	}
	if len(p) > f.n-pos {
		p = p[:f.n-pos]
	}
	return f.Reader.Read(p)
}

func TestUploader_Upload(t *testing.T) {
	tests := []struct {
		name        string
		body        func() io.Reader
		config      *Config
		wantType    string
		wantSize    int64
		checkInput  func(t *testing.T, input *s3.PutObjectInput)
		wantContent string
	}{
		{
			name:        "explicit content type",
			body:        func() io.Reader { return strings.NewReader("Hello, World!") },
			config:      &Config{Bucket: "test-bucket", Key: "test-key", ContentType: "application/x-custom"},
			wantType:    "application/x-custom",
			wantSize:    13,
			wantContent: "Hello, World!",
		},
		{
			name:        "detected text",
			body:        func() io.Reader { return strings.NewReader("hello-world") },
			config:      &Config{Bucket: "test-bucket", Key: "greeting.txt"},
			wantType:    "text/plain; charset=utf-8",
			wantSize:    11,
			wantContent: "hello-world",
		},
		{
			name:        "detected image from a stream",
			body:        func() io.Reader { return streamOnly{bytes.NewReader(pngHeader)} },
			config:      &Config{Bucket: "test-bucket", Key: "pixel.png"},
			wantType:    "image/png",
			wantSize:    int64(len(pngHeader)),
			wantContent: string(pngHeader),
		},
		{
			name: "metadata and storage class",
			body: func() io.Reader { return strings.NewReader("content") },
			config: &Config{
				Bucket:       "test-bucket",
				Key:          "test-key",
				ContentType:  "text/plain",
				Metadata:     map[string]string{"author": "test", "version": "1.0"},
				StorageClass: s3types.StorageClassStandardIA,
			},
			wantType:    "text/plain",
			wantSize:    7,
			wantContent: "content",
			checkInput: func(t *testing.T, input *s3.PutObjectInput) {
				assert.Equal(t, "test", input.Metadata["author"])
				assert.Equal(t, "1.0", input.Metadata["version"])
				assert.Equal(t, awstypes.StorageClassStandardIa, input.StorageClass)
			},
		},
		{
			name:        "empty body",
			body:        func() io.Reader { return nil },
			config:      &Config{Bucket: "test-bucket", Key: "empty", ContentType: "text/plain"},
			wantType:    "text/plain",
			wantSize:    0,
			wantContent: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received []byte
			mock := testutil.NewMockBuilder().WithPutObject(
				func(ctx context.Context, input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
					assert.Equal(t, tt.config.Bucket, aws.ToString(input.Bucket))
					assert.Equal(t, tt.config.Key, aws.ToString(input.Key))
					assert.Equal(t, tt.wantType, aws.ToString(input.ContentType))
					assert.Equal(t, tt.wantSize, aws.ToInt64(input.ContentLength))
					if tt.checkInput != nil {
						tt.checkInput(t, input)
					}

					data, err := io.ReadAll(input.Body)
					if err != nil {
						return nil, err
					}
					received = data
					return &s3.PutObjectOutput{ETag: aws.String(testutil.CalculateETag(data))}, nil
				},
			).Build()

			result, err := New(mock).Upload(context.Background(), tt.config, tt.body())
			require.NoError(t, err)

			assert.Equal(t, tt.wantContent, string(received))
			assert.Equal(t, tt.config.Bucket, result.Bucket)
			assert.Equal(t, tt.config.Key, result.Key)
			assert.Equal(t, tt.wantSize, result.Size)
			assert.Equal(t, testutil.CalculateETag([]byte(tt.wantContent)), result.ETag)
		})
	}
}

func TestUploader_Progress(t *testing.T) {
	payload := strings.Repeat("x", 10000)
	tracker := &testutil.MockProgressTracker{}
	var sink bytes.Buffer
	mock := testutil.NewMockBuilder().WithSuccessfulUpload(&sink).Build()

	_, err := New(mock).Upload(context.Background(), &Config{
		Bucket:          "b",
		Key:             "k",
		ProgressTracker: tracker,
	}, strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, payload, sink.String())
	assert.True(t, tracker.Completed())
	assert.Equal(t, int64(len(payload)), tracker.LastTransferred())
	for _, u := range tracker.Updates() {
		assert.Equal(t, int64(len(payload)), u.Total)
	}
}

func TestUploader_PartiallyConsumedReader(t *testing.T) {
	r := strings.NewReader("skip:payload")
	_, err := r.Seek(5, io.SeekStart)
	require.NoError(t, err)

	var sink bytes.Buffer
	mock := testutil.NewMockBuilder().WithSuccessfulUpload(&sink).Build()

	result, err := New(mock).Upload(context.Background(), &Config{Bucket: "b", Key: "k"}, r)
	require.NoError(t, err)
	assert.Equal(t, "payload", sink.String())
	assert.Equal(t, int64(7), result.Size)
}

func TestUploader_Failures(t *testing.T) {
	t.Run("remote failure is classified", func(t *testing.T) {
		tracker := &testutil.MockProgressTracker{}
		mock := testutil.NewMockBuilder().WithAccessDenied().Build()

		_, err := New(mock).Upload(context.Background(), &Config{
			Bucket:          "b",
			Key:             "k",
			ProgressTracker: tracker,
		}, strings.NewReader("data"))

		assert.True(t, errors.IsAccessDenied(err))
		assert.False(t, errors.IsLocalIO(err))
		assert.Error(t, tracker.Err())
	})

	t.Run("read failure of a seekable body is local", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), 8192)
		body := &flakyFile{Reader: bytes.NewReader(data), n: 4096}
		mock := testutil.NewMockBuilder().WithSuccessfulUpload(nil).Build()

		_, err := New(mock).Upload(context.Background(), &Config{
			Bucket:      "b",
			Key:         "k",
			ContentType: "text/plain",
		}, body)

		assert.True(t, errors.IsLocalIO(err))
		assert.Contains(t, err.Error(), "input/output error")
	})

	t.Run("read failure of a stream is local", func(t *testing.T) {
		mock := &testutil.MockS3Client{}
		body := streamOnly{&flakyFile{Reader: bytes.NewReader([]byte("abc")), n: 1}}

		_, err := New(mock).Upload(context.Background(), &Config{Bucket: "b", Key: "k"}, body)
		assert.True(t, errors.IsLocalIO(err))
	})
}
