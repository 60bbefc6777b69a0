package bufferpool

import "errors"

// Sentinel errors classifying the documented failure modes. Public
// operations still communicate failure primarily through a nil handle or a
// false return, but the accompanying error wraps one of these so callers
// that want to distinguish "exhausted" from "disk I/O failed" can do so
// with errors.Is. The one failure without an error is UnpinPage on a page
// whose pin count is already zero: it returns false and a nil error.
var (
	// ErrNoFreeFrame means neither the free list nor the replacer could
	// supply a frame for NewPage/FetchPage.
	ErrNoFreeFrame = errors.New("bufferpool: no free or evictable frame")

	// ErrPagePinned means DeletePage was asked to evict a page with a
	// positive pin count.
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrNotResident means the requested page id is not currently bound
	// to any frame.
	ErrNotResident = errors.New("bufferpool: page not resident")
)
