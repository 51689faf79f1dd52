package util

import "math"

const PAGE_SIZE = 4096

const (
	INVALID_PAGE_ID  PageId  = math.MaxUint32
	INVALID_FRAME_ID FrameId = -1
)

// PageId is the durable address of a page. It outlives any frame that
// happens to hold the page.
type PageId uint32

// FrameId is a slot index into the buffer pool's frame array.
type FrameId = int
