package delete

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/runner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/testutil"
)

func TestBatchDeleter_Delete(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed("bucket", "a", []byte("a"))

	deleter := New(store)
	require.NoError(t, deleter.Delete(context.Background(), "bucket", "a"))
	assert.Empty(t, store.Keys("bucket"))

	// Deleting a key that is already gone succeeds.
	require.NoError(t, deleter.Delete(context.Background(), "bucket", "a"))

	err := deleter.Delete(context.Background(), "missing-bucket", "a")
	assert.True(t, errors.IsBucketNotFound(err))
}

func TestBatchDeleter_DeleteMany(t *testing.T) {
	t.Run("empty key list makes no request", func(t *testing.T) {
		store := testutil.NewMemoryStore("bucket")

		result, err := New(store).DeleteMany(context.Background(), "bucket", nil)
		require.NoError(t, err)
		assert.Equal(t, "bucket", result.Bucket)
		assert.Empty(t, result.Deleted)
		assert.Zero(t, store.Calls("DeleteObjects"))
	})

	t.Run("chunks large key sets", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		keys := testutil.NewTestDataGenerator(3).GenerateKeys(2500, "bulk/")
		for _, k := range keys {
			store.Seed("bucket", k, []byte("x"))
		}
		store.Seed("bucket", "keep", []byte("x"))

		result, err := New(store).DeleteMany(context.Background(), "bucket", keys, runner.WithConcurrency(2))
		require.NoError(t, err)

		assert.Equal(t, keys, result.Deleted)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 3, store.Calls("DeleteObjects"))
		assert.Equal(t, []string{"keep"}, store.Keys("bucket"))
	})

	t.Run("per key failures are reported", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		for _, k := range []string{"a", "locked", "b"} {
			store.Seed("bucket", k, []byte(k))
		}
		store.DeleteErrors["locked"] = "AccessDenied"

		result, err := New(store).DeleteMany(context.Background(), "bucket", []string{"a", "locked", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.Deleted)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "locked", result.Errors[0].Key)
		assert.Equal(t, "AccessDenied", result.Errors[0].Code)
	})

	t.Run("request failure fails the call", func(t *testing.T) {
		keys := make([]string, 2100)
		for i := range keys {
			keys[i] = fmt.Sprintf("k%04d", i)
		}

		var (
			mu    sync.Mutex
			calls int
		)
		boom := stderrors.New("connection reset")
		mock := &testutil.MockS3Client{
			DeleteObjectsFunc: func(ctx context.Context, input *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()
				assert.LessOrEqual(t, len(input.Delete.Objects), MaxBatchSize)
				if n == 2 {
					return nil, boom
				}
				return &s3.DeleteObjectsOutput{}, nil
			},
		}

		result, err := New(mock).DeleteMany(context.Background(), "bucket", keys)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, boom)

		var be *errors.BatchError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, 1, be.Index)
		assert.Equal(t, 2, calls)
	})

	t.Run("access denied is classified", func(t *testing.T) {
		mock := testutil.NewMockBuilder().WithAccessDenied().Build()

		_, err := New(mock).DeleteMany(context.Background(), "bucket", []string{"a"})
		assert.True(t, errors.IsAccessDenied(err))
	})
}

func TestSplitIntoBatches(t *testing.T) {
	deleter := New(&testutil.MockS3Client{})

	tests := []struct {
		keys int
		want []int
	}{
		{1, []int{1}},
		{1000, []int{1000}},
		{1001, []int{1000, 1}},
		{3000, []int{1000, 1000, 1000}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.keys), func(t *testing.T) {
			batches := deleter.splitIntoBatches(make([]string, tt.keys))
			sizes := make([]int, len(batches))
			for i, b := range batches {
				sizes[i] = len(b)
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}
