package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/pool"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// Client defines the S3 operation the downloader needs.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Downloader handles S3 download operations with progress tracking support.
type Downloader struct {
	client Client
}

// New creates a new Downloader instance.
func New(client Client) *Downloader {
	return &Downloader{
		client: client,
	}
}

// Config describes one download.
type Config struct {
	Bucket          string
	Key             string
	Range           string
	ProgressTracker s3types.ProgressTracker
}

// Stream is an open object body with its metadata. The caller must close Body.
type Stream struct {
	Body         io.ReadCloser
	Size         int64
	ContentType  string
	ETag         string
	VersionID    string
	LastModified time.Time
	Metadata     map[string]string
}

// Open starts a GetObject request and returns the body without reading it.
func (d *Downloader) Open(ctx context.Context, config *Config) (*Stream, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(config.Bucket),
		Key:    aws.String(config.Key),
	}
	if config.Range != "" {
		input.Range = aws.String(config.Range)
	}

	output, err := d.client.GetObject(ctx, input)
	if err != nil {
		return nil, errors.FromRemote(err)
	}
	if output == nil || output.Body == nil {
		return nil, errors.ErrInvalidResponse
	}

	stream := &Stream{
		Body:         output.Body,
		Size:         aws.ToInt64(output.ContentLength),
		ContentType:  aws.ToString(output.ContentType),
		ETag:         aws.ToString(output.ETag),
		VersionID:    aws.ToString(output.VersionId),
		LastModified: aws.ToTime(output.LastModified),
		Metadata:     output.Metadata,
	}

	if config.ProgressTracker != nil {
		stream.Body = &progressReader{
			ReadCloser:      output.Body,
			progressTracker: config.ProgressTracker,
			total:           stream.Size,
		}
	}

	return stream, nil
}

// Download streams an object into writer.
// Writer failures match errors.ErrLocalIO; body read failures are classified as remote.
func (d *Downloader) Download(
	ctx context.Context,
	config *Config,
	writer io.Writer,
) (*s3types.DownloadResult, error) {
	start := time.Now()

	stream, err := d.Open(ctx, config)
	if err != nil {
		reportError(config, err)
		return nil, err
	}
	defer stream.Body.Close()

	written, err := Copy(writer, stream)
	if err != nil {
		reportError(config, err)
		return nil, err
	}

	size := stream.Size
	if size == 0 {
		size = written
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(written, size)
		config.ProgressTracker.Complete()
	}

	return &s3types.DownloadResult{
		Bucket:    config.Bucket,
		Key:       config.Key,
		Size:      written,
		ETag:      stream.ETag,
		VersionID: stream.VersionID,
		Duration:  time.Since(start),
	}, nil
}

// Get reads an entire object into memory.
func (d *Downloader) Get(ctx context.Context, config *Config) (*s3types.Object, error) {
	stream, err := d.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()

	var buf bytes.Buffer
	if stream.Size > 0 {
		buf.Grow(int(stream.Size))
	}
	if _, err := Copy(&buf, stream); err != nil {
		return nil, err
	}

	return &s3types.Object{
		Bucket:        config.Bucket,
		Key:           config.Key,
		Body:          buf.Bytes(),
		ContentType:   stream.ContentType,
		ContentLength: int64(buf.Len()),
		ETag:          stream.ETag,
		VersionID:     stream.VersionID,
		LastModified:  stream.LastModified,
		Metadata:      stream.Metadata,
	}, nil
}

// Copy drains an open stream into writer through a pooled buffer.
func Copy(writer io.Writer, stream *Stream) (int64, error) {
	written, err := pool.Copy(writer, stream.Body, stream.Size)
	if err == nil {
		return written, nil
	}

	var we *pool.WriteError
	if errors.As(err, &we) {
		return written, fmt.Errorf("%w: %w", errors.ErrLocalIO, we.Err)
	}
	return written, fmt.Errorf("read body: %w", errors.FromRemote(err))
}

func reportError(config *Config, err error) {
	if config.ProgressTracker != nil {
		config.ProgressTracker.Error(err)
	}
}

// progressReader wraps an object body to report progress.
type progressReader struct {
	io.ReadCloser
	progressTracker s3types.ProgressTracker
	total           int64
	bytesRead       int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.ReadCloser.Read(p)
	if n > 0 {
		pr.bytesRead += int64(n)
		pr.progressTracker.Update(pr.bytesRead, pr.total)
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}
