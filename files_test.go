package s3kit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

func newFileTestClient(t *testing.T) (*Client, *testutil.MemoryStore, *billy.FS) {
	t.Helper()
	memFS := billy.NewInMemoryFS()
	client, store := newTestClient(t, WithFilesystem(memFS))
	return client, store, memFS
}

func TestClient_PutFromFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFS   func(fs *billy.FS) error
		path      string
		input     s3types.PutInput
		wantBody  string
		wantErr   func(t *testing.T, err error)
		wantCalls int
	}{
		{
			name: "uploads file content",
			setupFS: func(fs *billy.FS) error {
				if err := fs.MkdirAll("/data", 0o755); err != nil {
					return err
				}
				return fs.WriteFile("/data/greeting.txt", []byte("hello-world"), 0o644)
			},
			path:      "/data/greeting.txt",
			input:     s3types.PutInput{Bucket: "test-bucket", Key: "greeting.txt"},
			wantBody:  "hello-world",
			wantCalls: 1,
		},
		{
			name:  "missing file",
			path:  "/data/missing.txt",
			input: s3types.PutInput{Bucket: "test-bucket", Key: "missing.txt"},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrLocalIO)
				assert.Equal(t, errors.CodeLocalIO, errors.CodeOf(err))

				var e *errors.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "/data/missing.txt", e.Path)
				assert.Equal(t, "test-bucket", e.Bucket)
				assert.Equal(t, "missing.txt", e.Key)
			},
		},
		{
			name: "directory",
			setupFS: func(fs *billy.FS) error {
				return fs.MkdirAll("/data/dir", 0o755)
			},
			path:  "/data/dir",
			input: s3types.PutInput{Bucket: "test-bucket", Key: "dir"},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, errors.IsLocalIO(err))
			},
		},
		{
			name:  "empty path",
			path:  "",
			input: s3types.PutInput{Bucket: "test-bucket", Key: "k"},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
			},
		},
		{
			name: "missing bucket is remote",
			setupFS: func(fs *billy.FS) error {
				return fs.WriteFile("/f.txt", []byte("x"), 0o644)
			},
			path:      "/f.txt",
			input:     s3types.PutInput{Bucket: "no-such-bucket", Key: "f.txt"},
			wantCalls: 1,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, errors.IsBucketNotFound(err))
				assert.False(t, errors.IsLocalIO(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, store, memFS := newFileTestClient(t)
			if tt.setupFS != nil {
				require.NoError(t, tt.setupFS(memFS))
			}

			result, err := client.PutFromFile(context.Background(), tt.input, tt.path)
			assert.Equal(t, tt.wantCalls, store.Calls("PutObject"))

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, result)
				tt.wantErr(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.wantBody)), result.Size)

			obj, err := client.Get(context.Background(), s3types.GetInput{Bucket: tt.input.Bucket, Key: tt.input.Key})
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(obj.Body))
		})
	}
}

func TestClient_GetToFile(t *testing.T) {
	t.Run("writes the object and creates parents", func(t *testing.T) {
		client, store, memFS := newFileTestClient(t)
		store.Seed("test-bucket", "reports/2024.csv", []byte("a,b\n1,2\n"))
		tracker := &testutil.MockProgressTracker{}

		result, err := client.GetToFile(context.Background(),
			s3types.GetInput{Bucket: "test-bucket", Key: "reports/2024.csv"},
			"/out/reports/2024.csv",
			WithProgress(tracker),
		)
		require.NoError(t, err)
		assert.Equal(t, "/out/reports/2024.csv", result.Filename)
		assert.Equal(t, int64(8), result.Size)
		assert.Equal(t, "test-bucket", result.Input.Bucket)
		assert.Equal(t, testutil.CalculateETag([]byte("a,b\n1,2\n")), result.ETag)
		assert.True(t, tracker.Completed())

		data, err := memFS.ReadFile("/out/reports/2024.csv")
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(data))
	})

	t.Run("default bucket", func(t *testing.T) {
		memFS := billy.NewInMemoryFS()
		client, store := newTestClient(t, WithFilesystem(memFS), WithDefaultBucket("test-bucket"))
		store.Seed("test-bucket", "k", []byte("v"))

		result, err := client.GetToFile(context.Background(), s3types.GetInput{Key: "k"}, "k.txt")
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", result.Input.Bucket)
	})

	t.Run("missing object creates no file", func(t *testing.T) {
		client, _, memFS := newFileTestClient(t)
		tracker := &testutil.MockProgressTracker{}

		_, err := client.GetToFile(context.Background(),
			s3types.GetInput{Bucket: "test-bucket", Key: "missing"},
			"/out/missing",
			WithProgress(tracker),
		)
		assert.True(t, errors.IsObjectNotFound(err))
		assert.Error(t, tracker.Err())

		exists, err := memFS.Exists("/out/missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("filesystem can be swapped", func(t *testing.T) {
		client, store, first := newFileTestClient(t)
		store.Seed("test-bucket", "k", []byte("v"))

		second := billy.NewInMemoryFS()
		client.SetFilesystem(second)

		_, err := client.GetToFile(context.Background(), s3types.GetInput{Bucket: "test-bucket", Key: "k"}, "/k")
		require.NoError(t, err)

		exists, err := first.Exists("/k")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = second.Exists("/k")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestClient_FileTransfers_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("local.txt", []byte("hello-world"), 0o600))

	// No WithFilesystem: the native filesystem is used.
	client, store := newTestClient(t)

	_, err := client.PutFromFile(context.Background(), s3types.PutInput{Bucket: "test-bucket", Key: "local.txt"}, "local.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Calls("PutObject"))

	result, err := client.GetToFile(context.Background(),
		s3types.GetInput{Bucket: "test-bucket", Key: "local.txt"},
		filepath.Join("out", "copy.txt"),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.Size)

	data, err := os.ReadFile(filepath.Join(dir, "out", "copy.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world", string(data))
}
