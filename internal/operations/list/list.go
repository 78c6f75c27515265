package list

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	s3types "github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/s3types"
)

// MaxPageSize is the largest page the storage service returns.
const MaxPageSize int32 = 1000

// Client defines the S3 operation the lister needs.
type Client interface {
	ListObjectsV2(
		ctx context.Context,
		input *s3.ListObjectsV2Input,
		opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
}

// PageRecorder is notified once per fetched page.
type PageRecorder interface {
	PageFetched(bucket string, entries int)
}

// Lister handles listing of S3 objects.
type Lister struct {
	client   Client
	logger   zerolog.Logger
	recorder PageRecorder
}

// Option configures a Lister.
type Option func(*Lister)

// WithLogger sets the logger used for page level events.
func WithLogger(l zerolog.Logger) Option {
	return func(ls *Lister) {
		ls.logger = l
	}
}

// WithPageRecorder registers a recorder for fetched pages.
func WithPageRecorder(r PageRecorder) Option {
	return func(ls *Lister) {
		ls.recorder = r
	}
}

// New creates a new Lister.
func New(client Client, opts ...Option) *Lister {
	l := &Lister{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config holds configuration for list operations.
type Config struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	StartAfter        string
	ContinuationToken string
	MaxKeys           int32
}

// PageError reports the page on which a listing failed.
type PageError struct {
	Bucket string
	Prefix string
	Page   int
	Err    error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("list %s (prefix %q) page %d: %v", e.Bucket, e.Prefix, e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *PageError) Unwrap() error {
	return e.Err
}

// List fetches a single page. An explicit ContinuationToken in the config resumes a
// previous listing.
func (l *Lister) List(ctx context.Context, config *Config) (*s3types.ListPage, error) {
	if err := validate(config); err != nil {
		return nil, err
	}

	p := l.Paginator(config)
	page, err := p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ListAll walks every page of a listing and returns the entries in page order.
// Any page failure aborts the walk and no partial result is returned.
func (l *Lister) ListAll(ctx context.Context, config *Config) ([]s3types.Entry, error) {
	if err := validate(config); err != nil {
		return nil, err
	}

	start := time.Now()
	entries := make([]s3types.Entry, 0)

	p := l.Paginator(config)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Str("bucket", config.Bucket).
				Str("prefix", config.Prefix).
				Int("pages", p.pages).
				Msg("listing aborted")
			return nil, err
		}
		entries = append(entries, page.Entries...)
	}

	l.logger.Debug().
		Str("bucket", config.Bucket).
		Str("prefix", config.Prefix).
		Int("pages", p.pages).
		Int("entries", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("listing complete")

	return entries, nil
}

// Stream walks every page of a listing and delivers entries on a channel.
// A failure, including cancellation of ctx, is delivered in-band as the last value
// before the channel closes.
func (l *Lister) Stream(ctx context.Context, config *Config) <-chan s3types.ListStreamResult {
	resultChan := make(chan s3types.ListStreamResult, 100)

	go func() {
		defer close(resultChan)

		send := func(r s3types.ListStreamResult) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case resultChan <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		cancelled := func() {
			SendLast(resultChan, fmt.Errorf("list stream: %w", errors.FromRemote(ctx.Err())))
		}

		if err := validate(config); err != nil {
			SendLast(resultChan, err)
			return
		}

		p := l.Paginator(config)
		for p.HasMorePages() {
			if ctx.Err() != nil {
				cancelled()
				return
			}
			page, err := p.NextPage(ctx)
			if err != nil {
				SendLast(resultChan, err)
				return
			}

			for _, entry := range page.Entries {
				if !send(s3types.ListStreamResult{Entry: entry}) {
					cancelled()
					return
				}
			}
		}
	}()

	return resultChan
}

// SendLast delivers err as the final result on ch without waiting for a reader.
// ch must be buffered and must have no other sender. When the buffer is full the oldest
// pending entry is discarded to make room; the error already marks the stream incomplete.
func SendLast(ch chan s3types.ListStreamResult, err error) {
	r := s3types.ListStreamResult{Err: err}
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Paginator creates a paginator for caller driven multi-page listing.
func (l *Lister) Paginator(config *Config) *Paginator {
	return &Paginator{
		lister:            l,
		config:            config,
		pageSize:          pageSize(config.MaxKeys),
		continuationToken: config.ContinuationToken,
		firstPage:         true,
	}
}

// Paginator walks the pages of one listing.
type Paginator struct {
	lister            *Lister
	config            *Config
	pageSize          int32
	continuationToken string
	hasMorePages      bool
	firstPage         bool
	pages             int
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// NextPage fetches the next page of results.
func (p *Paginator) NextPage(ctx context.Context) (*s3types.ListPage, error) {
	if !p.HasMorePages() {
		return nil, fmt.Errorf("list %s: no more pages: %w", p.config.Bucket, errors.ErrInvalidInput)
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		MaxKeys: aws.Int32(p.pageSize),
	}
	if p.config.Prefix != "" {
		input.Prefix = aws.String(p.config.Prefix)
	}
	if p.config.Delimiter != "" {
		input.Delimiter = aws.String(p.config.Delimiter)
	}
	if p.continuationToken != "" {
		input.ContinuationToken = aws.String(p.continuationToken)
	} else if p.config.StartAfter != "" {
		input.StartAfter = aws.String(p.config.StartAfter)
	}

	pageNumber := p.pages + 1
	start := time.Now()

	output, err := p.lister.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, p.pageError(pageNumber, errors.FromRemote(err))
	}
	if output == nil {
		return nil, p.pageError(pageNumber, errors.ErrInvalidResponse)
	}

	page := convertOutput(p.config.Bucket, output)
	page.Duration = time.Since(start)

	// A truncated page without a token would repeat the same request forever.
	if page.IsTruncated && page.NextContinuationToken == "" {
		return nil, p.pageError(pageNumber, fmt.Errorf("truncated page without continuation token: %w",
			errors.ErrInvalidResponse))
	}

	p.pages = pageNumber
	p.firstPage = false
	p.hasMorePages = page.IsTruncated
	p.continuationToken = page.NextContinuationToken

	if p.lister.recorder != nil {
		p.lister.recorder.PageFetched(p.config.Bucket, len(page.Entries))
	}
	p.lister.logger.Debug().
		Str("bucket", p.config.Bucket).
		Int("page", pageNumber).
		Int("entries", len(page.Entries)).
		Bool("truncated", page.IsTruncated).
		Msg("fetched list page")

	return page, nil
}

func (p *Paginator) pageError(page int, err error) error {
	return &PageError{
		Bucket: p.config.Bucket,
		Prefix: p.config.Prefix,
		Page:   page,
		Err:    err,
	}
}

func validate(config *Config) error {
	if config == nil || config.Bucket == "" {
		return fmt.Errorf("list: bucket is required: %w", errors.ErrInvalidInput)
	}
	return nil
}

// convertOutput converts S3 output to a ListPage, annotating every entry with the bucket.
func convertOutput(bucket string, output *s3.ListObjectsV2Output) *s3types.ListPage {
	page := &s3types.ListPage{
		Entries:        make([]s3types.Entry, 0, len(output.Contents)),
		CommonPrefixes: make([]string, 0, len(output.CommonPrefixes)),
		IsTruncated:    aws.ToBool(output.IsTruncated),
	}

	if page.IsTruncated {
		page.NextContinuationToken = aws.ToString(output.NextContinuationToken)
	}

	for _, obj := range output.Contents {
		page.Entries = append(page.Entries, s3types.Entry{
			Bucket:       bucket,
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: string(obj.StorageClass),
		})
	}

	for _, prefix := range output.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, aws.ToString(prefix.Prefix))
	}

	return page
}

func pageSize(maxKeys int32) int32 {
	if maxKeys > 0 && maxKeys <= MaxPageSize {
		return maxKeys
	}
	return MaxPageSize
}
