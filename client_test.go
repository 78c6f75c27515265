package s3kit

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// newTestClient builds a client over a memory store seeded with the given buckets.
func newTestClient(t *testing.T, opts ...s3types.Option) (*Client, *testutil.MemoryStore) {
	t.Helper()
	store := testutil.NewMemoryStore("test-bucket", "other-bucket")
	client, err := NewWithClient(store, opts...)
	require.NoError(t, err)
	return client, store
}

func TestClient_New(t *testing.T) {
	tests := []struct {
		name       string
		opts       []s3types.Option
		wantRegion string
	}{
		{
			name:       "region from aws config",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{Region: "eu-west-1"})},
			wantRegion: "eu-west-1",
		},
		{
			name:       "region option wins",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{Region: "eu-west-1"}), WithRegion("us-west-2")},
			wantRegion: "us-west-2",
		},
		{
			name:       "default region",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{})},
			wantRegion: DefaultRegion,
		},
		{
			name: "endpoint and path style",
			opts: []s3types.Option{
				WithAWSConfig(&aws.Config{Region: "us-east-1"}),
				WithEndpoint("http://localhost:4566"),
				WithForcePathStyle(true),
				WithTimeout(5 * time.Second),
				WithMaxRetries(5),
			},
			wantRegion: "us-east-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, client)

			s3Client, ok := client.API().(*s3.Client)
			require.True(t, ok)
			assert.Equal(t, tt.wantRegion, s3Client.Options().Region)
		})
	}
}

func TestClient_New_SDKOptions(t *testing.T) {
	cfg := defaultConfig()
	WithEndpoint("http://localhost:9000")(cfg)
	WithForcePathStyle(true)(cfg)
	WithTimeout(3 * time.Second)(cfg)

	var o s3.Options
	for _, fn := range sdkOptions(cfg) {
		fn(&o)
	}
	assert.Equal(t, "http://localhost:9000", aws.ToString(o.BaseEndpoint))
	assert.True(t, o.UsePathStyle)
	assert.NotNil(t, o.HTTPClient)
}

func TestClient_NewWithClient(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		client, err := NewWithClient(nil)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, errors.ErrInvalidClient)
		assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
	})

	t.Run("typed nil client", func(t *testing.T) {
		var store *testutil.MemoryStore
		client, err := NewWithClient(store)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, errors.ErrInvalidClient)
	})

	t.Run("nil minio client", func(t *testing.T) {
		client, err := NewMinio(nil)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, errors.ErrInvalidClient)
	})

	t.Run("concurrency below one", func(t *testing.T) {
		_, err := NewWithClient(testutil.NewMemoryStore(), WithConcurrency(0))
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
		assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
	})

	t.Run("defaults", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		client, err := NewWithClient(store, WithDefaultBucket("test-bucket"))
		require.NoError(t, err)
		assert.Same(t, store, client.API())
		assert.Equal(t, "test-bucket", client.DefaultBucket())
		assert.Equal(t, DefaultConcurrency, client.config.Concurrency)
		assert.NotNil(t, client.filesystem())
	})
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewWithClient(testutil.NewMemoryStore(), WithMetrics(reg))
	require.NoError(t, err)

	// A second client on the same registry shares the collectors.
	_, err = NewWithClient(testutil.NewMemoryStore(), WithMetrics(reg))
	require.NoError(t, err)
}

func TestClient_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	client, _ := newTestClient(t, WithLogger(logger))
	_, err := client.Exists(t.Context(), "test-bucket", "missing")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"component":"s3kit"`)
	assert.Contains(t, buf.String(), `"op":"exists"`)
}

func TestClient_ConcurrentUse(t *testing.T) {
	client, store := newTestClient(t)
	store.Seed("test-bucket", "shared", []byte("data"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obj, err := client.Get(t.Context(), s3types.GetInput{Bucket: "test-bucket", Key: "shared"})
			assert.NoError(t, err)
			if obj != nil {
				assert.Equal(t, "data", string(obj.Body))
			}
		}()
	}
	wg.Wait()
}
