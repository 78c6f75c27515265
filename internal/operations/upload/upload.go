package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// sniffLen is how many leading bytes are inspected for content type detection.
const sniffLen = 3072

// Client defines the S3 operation the uploader needs.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader handles single request S3 uploads.
type Uploader struct {
	client Client
}

// New creates a new Uploader instance.
func New(client Client) *Uploader {
	return &Uploader{
		client: client,
	}
}

// Config describes one upload.
type Config struct {
	Bucket          string
	Key             string
	ContentType     string
	Metadata        map[string]string
	StorageClass    s3types.StorageClass
	ProgressTracker s3types.ProgressTracker
}

// Upload writes body to bucket/key.
// Read failures of body match errors.ErrLocalIO; request failures are classified as remote.
func (u *Uploader) Upload(ctx context.Context, config *Config, body io.Reader) (*s3types.PutResult, error) {
	start := time.Now()

	rs, size, err := seekable(body)
	if err != nil {
		return nil, u.fail(config, fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
	}

	contentType := config.ContentType
	if contentType == "" {
		if contentType, err = detectContentType(rs); err != nil {
			return nil, u.fail(config, fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
		}
	}

	base, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, u.fail(config, fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(config.Bucket),
		Key:           aws.String(config.Key),
		Body:          &trackedBody{rs: rs, tracker: config.ProgressTracker, total: size, base: base},
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.client.PutObject(ctx, input)
	if err != nil {
		var se *sourceError
		if errors.As(err, &se) {
			return nil, u.fail(config, fmt.Errorf("%w: %w", errors.ErrLocalIO, se.err))
		}
		return nil, u.fail(config, errors.FromRemote(err))
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(size, size)
		config.ProgressTracker.Complete()
	}

	return &s3types.PutResult{
		Bucket:    config.Bucket,
		Key:       config.Key,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(start),
	}, nil
}

func (u *Uploader) fail(config *Config, err error) error {
	if config.ProgressTracker != nil {
		config.ProgressTracker.Error(err)
	}
	return err
}

// seekable returns body as a ReadSeeker together with the number of bytes remaining.
func seekable(body io.Reader) (io.ReadSeeker, int64, error) {
	if body == nil {
		return bytes.NewReader(nil), 0, nil
	}

	if rs, ok := body.(io.ReadSeeker); ok {
		cur, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, err
		}
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(cur, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, end - cur, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// detectContentType sniffs the leading bytes of rs and rewinds it.
func detectContentType(rs io.ReadSeeker) (string, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return "", err
	}
	return mimetype.Detect(header[:n]).String(), nil
}

// sourceError marks a failure reading the caller's body.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string { return "read source: " + e.err.Error() }

func (e *sourceError) Unwrap() error { return e.err }

// trackedBody reports read progress and tags read failures as local.
type trackedBody struct {
	rs      io.ReadSeeker
	tracker s3types.ProgressTracker
	total   int64
	base    int64
	read    int64
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.rs.Read(p)
	if n > 0 {
		b.read += int64(n)
		if b.tracker != nil {
			b.tracker.Update(b.read, b.total)
		}
	}
	if err != nil && err != io.EOF {
		return n, &sourceError{err: err}
	}
	//nolint:wrapcheck // io.EOF must be returned unwrapped
	return n, err
}

func (b *trackedBody) Seek(offset int64, whence int) (int64, error) {
	pos, err := b.rs.Seek(offset, whence)
	if err != nil {
		return pos, &sourceError{err: err}
	}
	b.read = pos - b.base
	return pos, nil
}
