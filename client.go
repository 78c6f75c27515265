package s3kit

import (
	"context"
	"net/http"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/copy"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/delete"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/s3api/minioapi"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

const (
	// DefaultRegion is used when neither the options nor the environment name a region.
	DefaultRegion = "us-east-1"

	// DefaultConcurrency is the batch concurrency used when none is configured.
	DefaultConcurrency = 1
)

// ObjectAPI is the storage client contract s3kit operates on.
// *s3.Client satisfies it directly.
type ObjectAPI = s3api.S3API

// Client provides the s3kit operations over one storage client.
// It is safe for concurrent use.
type Client struct {
	// api is the storage collaborator all requests go through
	api s3api.S3API

	// config holds the resolved client configuration
	config s3types.ClientConfig

	// mu protects fs
	mu sync.RWMutex

	// fs is the filesystem used by PutFromFile and GetToFile
	fs fs.Filesystem

	logger  zerolog.Logger
	metrics *metrics.Recorder

	downloader *download.Downloader
	uploader   *upload.Uploader
	copier     *copy.Copier
	deleter    *delete.BatchDeleter
	lister     *list.Lister
}

func defaultConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:  3,
		Concurrency: DefaultConcurrency,
	}
}

// New creates a client backed by an aws-sdk-go-v2 S3 client.
// Credentials come from the default AWS credential chain unless WithAWSConfig is given.
//
// Example:
//
//	client, err := s3kit.New(
//	    s3kit.WithRegion("us-west-2"),
//	    s3kit.WithMaxRetries(5),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	if clientCfg.CustomAWSConfig != nil {
		cfg = clientCfg.CustomAWSConfig.Copy()
	} else {
		var err error
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("new", err).WithCode(errors.CodeInvalidConfig)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	s3Client := s3.NewFromConfig(cfg, sdkOptions(clientCfg)...)
	return newClient(s3Client, clientCfg)
}

func sdkOptions(clientCfg *s3types.ClientConfig) []func(*s3.Options) {
	var s3Opts []func(*s3.Options)

	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	switch {
	case clientCfg.CustomHTTPClient != nil:
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{Timeout: clientCfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return s3Opts
}

// NewWithClient creates a client over an existing storage client such as a configured
// *s3.Client or a test double. A nil api fails with errors.ErrInvalidClient.
func NewWithClient(api ObjectAPI, opts ...s3types.Option) (*Client, error) {
	if isNil(api) {
		return nil, errors.NewError("new", errors.ErrInvalidClient).
			WithCode(errors.CodeInvalidConfig).
			WithMessage("storage client is nil")
	}

	clientCfg := defaultConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	return newClient(api, clientCfg)
}

// NewMinio creates a client that talks to a MinIO or other S3 compatible server through mc.
func NewMinio(mc *minio.Client, opts ...s3types.Option) (*Client, error) {
	if mc == nil {
		return nil, errors.NewError("new", errors.ErrInvalidClient).
			WithCode(errors.CodeInvalidConfig).
			WithMessage("minio client is nil")
	}
	return NewWithClient(minioapi.New(mc), opts...)
}

// isNil reports whether api is nil or an interface holding a nil pointer.
func isNil(api ObjectAPI) bool {
	if api == nil {
		return true
	}
	v := reflect.ValueOf(api)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func newClient(api s3api.S3API, clientCfg *s3types.ClientConfig) (*Client, error) {
	if clientCfg.Concurrency < 1 {
		return nil, errors.NewError("new", errors.ErrInvalidInput).
			WithCode(errors.CodeInvalidConfig).
			WithMessage("concurrency must be at least 1")
	}

	logger := zerolog.Nop()
	if clientCfg.Logger != nil {
		logger = clientCfg.Logger.With().Str("component", "s3kit").Logger()
	}

	recorder, err := metrics.New(clientCfg.Registerer)
	if err != nil {
		return nil, errors.NewError("new", err).WithCode(errors.CodeInvalidConfig)
	}

	filesystem := clientCfg.Filesystem
	if filesystem == nil {
		filesystem = billy.NewBaseOSFS()
	}

	return &Client{
		api:        api,
		config:     *clientCfg,
		fs:         filesystem,
		logger:     logger,
		metrics:    recorder,
		downloader: download.New(api),
		uploader:   upload.New(api),
		copier:     copy.NewCopier(api),
		deleter:    delete.New(api),
		lister:     list.New(api, list.WithLogger(logger), list.WithPageRecorder(recorder)),
	}, nil
}

// SetFilesystem replaces the filesystem used for local file transfers.
func (c *Client) SetFilesystem(filesystem fs.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

func (c *Client) filesystem() fs.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// API returns the underlying storage client.
func (c *Client) API() ObjectAPI {
	return c.api
}

// DefaultBucket returns the bucket used when a request names none.
func (c *Client) DefaultBucket() string {
	return c.config.DefaultBucket
}
