package download

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/testutil"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, stderrors.New("disk full") }

type brokenBody struct{}

func (brokenBody) Read(p []byte) (int, error) { return 0, stderrors.New("connection reset") }
func (brokenBody) Close() error               { return nil }

func TestDownloader_Download(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		content  string
		mockFunc func(*testutil.MockS3Client)
		writer   io.Writer
		wantErr  func(t *testing.T, err error)
		progress bool
	}{
		{
			name:    "successful stream download",
			config:  &Config{Bucket: "test-bucket", Key: "test-key"},
			content: "Hello, World!",
			mockFunc: func(m *testutil.MockS3Client) {
				m.GetObjectFunc = func(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					assert.Equal(t, "test-bucket", aws.ToString(input.Bucket))
					assert.Equal(t, "test-key", aws.ToString(input.Key))
					assert.Nil(t, input.Range)
					return testutil.CreateGetObjectOutput([]byte("Hello, World!"), "text/plain"), nil
				}
			},
		},
		{
			name:     "download with progress tracking",
			config:   &Config{Bucket: "test-bucket", Key: "test-key"},
			content:  "test content",
			progress: true,
			mockFunc: func(m *testutil.MockS3Client) {
				m.GetObjectFunc = func(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					return testutil.CreateGetObjectOutput([]byte("test content"), "text/plain"), nil
				}
			},
		},
		{
			name:    "download with range",
			config:  &Config{Bucket: "test-bucket", Key: "test-key", Range: "bytes=0-4"},
			content: "Hello",
			mockFunc: func(m *testutil.MockS3Client) {
				m.GetObjectFunc = func(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					assert.Equal(t, "bytes=0-4", aws.ToString(input.Range))
					return testutil.CreateGetObjectOutput([]byte("Hello"), "text/plain"), nil
				}
			},
		},
		{
			name:     "object not found",
			config:   &Config{Bucket: "test-bucket", Key: "missing"},
			progress: true,
			mockFunc: func(m *testutil.MockS3Client) {
				*m = *testutil.NewMockBuilder().WithObjectNotFound().Build()
			},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, errors.IsObjectNotFound(err))
			},
		},
		{
			name:   "writer failure is local",
			config: &Config{Bucket: "test-bucket", Key: "test-key"},
			writer: failingWriter{},
			mockFunc: func(m *testutil.MockS3Client) {
				*m = *testutil.NewMockBuilder().WithObject([]byte("data"), "text/plain").Build()
			},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, errors.IsLocalIO(err))
			},
		},
		{
			name:   "body failure is remote",
			config: &Config{Bucket: "test-bucket", Key: "test-key"},
			mockFunc: func(m *testutil.MockS3Client) {
				m.GetObjectFunc = func(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					return &s3.GetObjectOutput{Body: brokenBody{}, ContentLength: aws.Int64(10)}, nil
				}
			},
			wantErr: func(t *testing.T, err error) {
				assert.False(t, errors.IsLocalIO(err))
				assert.Contains(t, err.Error(), "connection reset")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &testutil.MockS3Client{}
			if tt.mockFunc != nil {
				tt.mockFunc(mockClient)
			}
			downloader := New(mockClient)

			tracker := &testutil.MockProgressTracker{}
			if tt.progress {
				tt.config.ProgressTracker = tracker
			}

			var buf bytes.Buffer
			writer := tt.writer
			if writer == nil {
				writer = &buf
			}

			result, err := downloader.Download(context.Background(), tt.config, writer)

			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				if tt.progress {
					assert.Error(t, tracker.Err())
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.config.Bucket, result.Bucket)
			assert.Equal(t, tt.config.Key, result.Key)
			assert.Equal(t, int64(len(tt.content)), result.Size)
			assert.Equal(t, tt.content, buf.String())

			if tt.progress {
				assert.True(t, tracker.Completed())
				assert.NotEmpty(t, tracker.Updates())
				assert.Equal(t, int64(len(tt.content)), tracker.LastTransferred())
			}
		})
	}
}

func TestDownloader_Get(t *testing.T) {
	t.Run("reads the whole object", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		store.Seed("bucket", "greeting.txt", []byte("hello-world"))

		obj, err := New(store).Get(context.Background(), &Config{Bucket: "bucket", Key: "greeting.txt"})
		require.NoError(t, err)
		assert.Equal(t, "hello-world", string(obj.Body))
		assert.Equal(t, "bucket", obj.Bucket)
		assert.Equal(t, "greeting.txt", obj.Key)
		assert.Equal(t, int64(11), obj.ContentLength)
		assert.Equal(t, testutil.CalculateETag([]byte("hello-world")), obj.ETag)
	})

	t.Run("large object", func(t *testing.T) {
		payload := testutil.GenerateRandomData(3 * 1024 * 1024)
		store := testutil.NewMemoryStore()
		store.Seed("bucket", "blob", payload)

		obj, err := New(store).Get(context.Background(), &Config{Bucket: "bucket", Key: "blob"})
		require.NoError(t, err)
		assert.Equal(t, payload, obj.Body)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := New(testutil.NewMemoryStore()).Get(context.Background(), &Config{Bucket: "nope", Key: "k"})
		assert.True(t, errors.IsBucketNotFound(err))
	})

	t.Run("nil body is an invalid response", func(t *testing.T) {
		_, err := New(&testutil.MockS3Client{}).Get(context.Background(), &Config{Bucket: "b", Key: "k"})
		assert.ErrorIs(t, err, errors.ErrInvalidResponse)
	})
}

func TestDownloader_Open(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed("bucket", "k", []byte(strings.Repeat("z", 100)))

	stream, err := New(store).Open(context.Background(), &Config{Bucket: "bucket", Key: "k"})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, int64(100), stream.Size)
	var buf bytes.Buffer
	n, err := Copy(&buf, stream)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}
