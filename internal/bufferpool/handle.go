package bufferpool

import "QuayDB/internal/page"

// PageGuard is the handle surface callers receive from NewPage/FetchPage: a
// shared borrow of a frame whose lifetime ends at the matching UnpinPage
// call. QuayDB does not enforce that lifetime at the type level (the spec
// leaves that to either the type system or an explicit runtime check, per
// its design notes) — a PageGuard remains a thin, reusable view over the
// underlying *page.Page, and callers are expected to stop using it once
// they unpin.
type PageGuard struct {
	p *page.Page
}

// PageID returns the id of the page this guard borrows.
func (g *PageGuard) PageID() page.ID {
	g.p.RLock()
	defer g.p.RUnlock()
	return g.p.ID
}

// Data returns the frame's mutable PageSize-byte region. Concurrent readers
// over the same guard are fine; concurrent writers to the same frame are a
// contract violation the buffer pool does not arbitrate (see the spec's
// concurrency model).
func (g *PageGuard) Data() []byte {
	return g.p.Data
}

// IsDirty reports whether the frame has been marked dirty since its last
// flush.
func (g *PageGuard) IsDirty() bool {
	g.p.RLock()
	defer g.p.RUnlock()
	return g.p.IsDirty
}

// PinCount returns the frame's current pin count.
func (g *PageGuard) PinCount() int32 {
	g.p.RLock()
	defer g.p.RUnlock()
	return g.p.PinCount
}
