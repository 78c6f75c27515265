package s3kit

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// PutFromFile uploads the local file at path to an object.
//
// The file is checked before any request is made: a missing, unreadable or directory
// path fails with an error matching errors.ErrLocalIO whose Path names the file. The
// file is closed on every path. in.Body is ignored.
//
// Example:
//
//	result, err := client.PutFromFile(ctx, s3types.PutInput{
//	    Bucket: "my-bucket",
//	    Key:    "reports/2024.csv",
//	}, "/var/reports/2024.csv")
func (c *Client) PutFromFile(
	ctx context.Context,
	in s3types.PutInput,
	path string,
	opts ...s3types.TransferOption,
) (result *s3types.PutResult, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opPutFromFile, bucket, in.Key, time.Now(), &err)

	if err = validatePut(bucket, in); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NewError(opPutFromFile, errors.ErrInvalidInput).WithMessage("file path cannot be empty")
	}

	filesystem := c.filesystem()

	info, err := filesystem.Stat(path)
	if err != nil {
		return nil, errors.NewLocalError(opPutFromFile, path, err)
	}
	if info.IsDir() {
		return nil, errors.NewLocalError(opPutFromFile, path, fmt.Errorf("%s is a directory", path))
	}

	file, err := filesystem.Open(path)
	if err != nil {
		return nil, errors.NewLocalError(opPutFromFile, path, err)
	}
	defer file.Close()

	result, err = c.uploader.Upload(ctx, uploadConfig(bucket, in, opts), file)
	if err != nil {
		if errors.IsLocalIO(err) {
			return nil, errors.NewError(opPutFromFile, err).WithPath(path).WithCode(errors.CodeLocalIO)
		}
		return nil, err
	}
	return result, nil
}

// GetToFile streams an object into the local file at path, creating parent directories
// as needed.
//
// The remote object is opened before the local file is created, so a missing object
// leaves the filesystem untouched. A failure after the file was created leaves the
// partial file in place. The result is returned once the file has been closed.
func (c *Client) GetToFile(
	ctx context.Context,
	in s3types.GetInput,
	path string,
	opts ...s3types.TransferOption,
) (result *s3types.FileResult, err error) {
	bucket := c.resolveBucket(in.Bucket)
	defer c.track(opGetToFile, bucket, in.Key, time.Now(), &err)

	if err = validation.Object(bucket, in.Key); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NewError(opGetToFile, errors.ErrInvalidInput).WithMessage("file path cannot be empty")
	}

	tracker := transferConfig(opts).ProgressTracker
	defer func() {
		if tracker == nil {
			return
		}
		if err != nil {
			tracker.Error(err)
			return
		}
		tracker.Complete()
	}()

	stream, err := c.downloader.Open(ctx, &download.Config{
		Bucket:          bucket,
		Key:             in.Key,
		Range:           in.Range,
		ProgressTracker: tracker,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()

	filesystem := c.filesystem()

	if dir := filepath.Dir(path); dir != "." && dir != string(filepath.Separator) {
		if err = filesystem.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewLocalError(opGetToFile, path, err)
		}
	}

	file, err := filesystem.Create(path)
	if err != nil {
		return nil, errors.NewLocalError(opGetToFile, path, err)
	}

	written, err := download.Copy(file, stream)
	if err != nil {
		_ = file.Close()
		if errors.IsLocalIO(err) {
			return nil, errors.NewError(opGetToFile, err).WithPath(path).WithCode(errors.CodeLocalIO)
		}
		return nil, err
	}
	if err = file.Close(); err != nil {
		return nil, errors.NewLocalError(opGetToFile, path, err)
	}

	in.Bucket = bucket
	return &s3types.FileResult{
		Input:    in,
		Filename: path,
		Size:     written,
		ETag:     stream.ETag,
	}, nil
}
