package util

import (
	"errors"
	"fmt"
)

var (
	ErrPoolExhausted    = errors.New("buffer pool exhausted: every frame is pinned")
	ErrPageNotFound     = errors.New("page not found")
	ErrPageNotResident  = errors.New("page is not resident in the buffer pool")
	ErrPagePinned       = errors.New("page is pinned")
	ErrInvalidPoolSize  = errors.New("pool size must be positive")
	ErrChecksumMismatch = errors.New("page checksum mismatch")
	ErrSchedulerClosed  = errors.New("disk scheduler is closed")
	ErrPageOverflow     = errors.New("value does not fit in a page")
	ErrInvalidPageSize  = errors.New("page data must be exactly PAGE_SIZE bytes")
)

// IoError wraps a failure reported by the disk layer. The cause is kept
// verbatim so callers can match it with errors.Is.
type IoError struct {
	Op     string
	PageId PageId
	Err    error
}

func NewIoError(op string, pageId PageId, err error) *IoError {
	return &IoError{Op: op, PageId: pageId, Err: err}
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Op, e.PageId, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}
