package pool

import (
	"io"
	"sync"
)

const (
	// SmallBufferSize defines the size for small buffers (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize defines the size for medium buffers (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize defines the size for large buffers (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages reusable buffers of different sizes to reduce allocations.
type BufferPool struct {
	small  *sync.Pool
	medium *sync.Pool
	large  *sync.Pool
}

func newTier(size int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newTier(SmallBufferSize),
		medium: newTier(MediumBufferSize),
		large:  newTier(LargeBufferSize),
	}
}

// GetBuffer returns a zero-length buffer whose capacity covers size, capped at
// LargeBufferSize. Unknown or non-positive sizes get a medium buffer.
// The caller is responsible for calling PutBuffer to return the buffer to the pool.
func (bp *BufferPool) GetBuffer(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= 0:
		bufPtr = bp.medium.Get().(*[]byte)
	case size <= SmallBufferSize:
		bufPtr = bp.small.Get().(*[]byte)
	case size <= MediumBufferSize:
		bufPtr = bp.medium.Get().(*[]byte)
	default:
		bufPtr = bp.large.Get().(*[]byte)
	}
	return (*bufPtr)[:0]
}

// PutBuffer returns a buffer to the pool matching its capacity.
// Buffers of any other capacity are dropped.
func (bp *BufferPool) PutBuffer(buf []byte) {
	buf = buf[:0]
	switch cap(buf) {
	case SmallBufferSize:
		bp.small.Put(&buf)
	case MediumBufferSize:
		bp.medium.Put(&buf)
	case LargeBufferSize:
		bp.large.Put(&buf)
	}
}

// WriteError reports a failure of the destination writer during Copy.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "write: " + e.Err.Error() }

// Unwrap returns the writer error.
func (e *WriteError) Unwrap() error { return e.Err }

// Copy streams src into dst through a pooled buffer sized for sizeHint bytes.
// Destination failures are returned as *WriteError; source failures are returned as is.
func (bp *BufferPool) Copy(dst io.Writer, src io.Reader, sizeHint int64) (int64, error) {
	buf := bp.GetBuffer(int(min(sizeHint, int64(LargeBufferSize))))
	defer bp.PutBuffer(buf)

	// The wrappers hide ReaderFrom/WriterTo so the pooled buffer is always used.
	return io.CopyBuffer(writerOnly{dst}, readerOnly{src}, buf[:cap(buf)])
}

type readerOnly struct {
	r io.Reader
}

func (r readerOnly) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

type writerOnly struct {
	w io.Writer
}

func (w writerOnly) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		return n, &WriteError{Err: err}
	}
	if n < len(p) {
		return n, &WriteError{Err: io.ErrShortWrite}
	}
	return n, nil
}

// Global buffer pool instance for use throughout the module.
var globalBufferPool = NewBufferPool()

// Copy streams src into dst using the global pool.
func Copy(dst io.Writer, src io.Reader, sizeHint int64) (int64, error) {
	return globalBufferPool.Copy(dst, src, sizeHint)
}
