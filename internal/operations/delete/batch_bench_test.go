package delete

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/runner"
)

// latencyClient acknowledges every key after a fixed delay.
type latencyClient struct {
	delay time.Duration
}

func (c latencyClient) DeleteObjects(
	ctx context.Context,
	input *s3.DeleteObjectsInput,
	opts ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	time.Sleep(c.delay)
	out := &s3.DeleteObjectsOutput{Deleted: make([]types.DeletedObject, 0, len(input.Delete.Objects))}
	for _, obj := range input.Delete.Objects {
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: obj.Key})
	}
	return out, nil
}

func (c latencyClient) DeleteObject(
	ctx context.Context,
	input *s3.DeleteObjectInput,
	opts ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	time.Sleep(c.delay)
	return &s3.DeleteObjectOutput{}, nil
}

func benchKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench/object-%06d", i)
	}
	return keys
}

func BenchmarkDeleteMany(b *testing.B) {
	cases := []struct {
		keys        int
		concurrency int
	}{
		{500, 1},
		{5000, 1},
		{5000, 5},
		{20000, 4},
	}

	for _, tc := range cases {
		b.Run(fmt.Sprintf("keys=%d/k=%d", tc.keys, tc.concurrency), func(b *testing.B) {
			deleter := New(latencyClient{delay: time.Millisecond})
			keys := benchKeys(tc.keys)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := deleter.DeleteMany(context.Background(), "bench", keys,
					runner.WithConcurrency(tc.concurrency)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSplitIntoBatches(b *testing.B) {
	deleter := New(latencyClient{})
	keys := benchKeys(10000)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = deleter.splitIntoBatches(keys)
	}
}
