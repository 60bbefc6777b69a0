// Package bufferpool implements the buffer pool manager: the component
// that owns the frame array and free list, and orchestrates the extendible
// hash directory (internal/hashdir) and the LRU-K replacer
// (internal/replacer) to service NewPage/FetchPage/UnpinPage/FlushPage/
// FlushAllPages/DeletePage. It is the composition root of the three core
// components described in the spec; everything else in the repository is
// an external collaborator it talks to through a narrow interface
// (internal/diskio.Manager) or doesn't talk to at all.
package bufferpool

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"QuayDB/internal/diskio"
	"QuayDB/internal/hashdir"
	"QuayDB/internal/page"
	"QuayDB/internal/replacer"
)

const defaultBucketSize = 4

// LogSink observes page flushes: OnFlush is called after every write made
// by FlushPage/FlushAllPages, with whether the page was dirty. Write-backs
// during eviction or DeletePage are not reported. It is the spec's optional,
// unused-by-this-spec LogManager collaborator: wiring one never changes
// eviction or flush correctness, and a nil sink is always valid.
type LogSink interface {
	OnFlush(id page.ID, dirty bool)
}

// Options configures a Manager beyond the required pool size and disk
// manager.
type Options struct {
	// K is the LRU-K replacer's K. Defaults to 5 if <= 0.
	K int
	// BucketSize is the extendible hash directory's per-bucket capacity.
	// Defaults to 4 if <= 0.
	BucketSize int
	// Log receives structured diagnostics. Defaults to logrus.New().
	Log logrus.FieldLogger
	// LogSink observes flushes. Optional.
	LogSink LogSink
}

// Manager is the buffer pool manager: fixed capacity, at most one resident
// copy per PageID, pinned handles mediate every access.
type Manager struct {
	latch sync.Mutex

	poolSize int
	frames   []*page.Page
	freeList *list.List // of page.FrameID

	dir      *hashdir.Directory[page.ID, page.FrameID]
	replacer *replacer.Replacer
	disk     diskio.Manager

	nextPageID page.ID

	log     logrus.FieldLogger
	logSink LogSink
	sketch  *sketch
}

// New constructs a Manager with poolSize frames backed by disk.
func New(poolSize int, disk diskio.Manager, opts Options) *Manager {
	if poolSize <= 0 {
		panic("bufferpool: poolSize must be > 0")
	}
	k := opts.K
	if k <= 0 {
		k = 5
	}
	bucketSize := opts.BucketSize
	if bucketSize <= 0 {
		bucketSize = defaultBucketSize
	}
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	log = log.WithField("component", "bufferpool")

	m := &Manager{
		poolSize: poolSize,
		frames:   make([]*page.Page, poolSize),
		freeList: list.New(),
		dir:      hashdir.New[page.ID, page.FrameID](bucketSize),
		replacer: replacer.New(poolSize, k, log),
		disk:     disk,
		log:      log,
		logSink:  opts.LogSink,
		sketch:   newSketch(),
	}
	for i := 0; i < poolSize; i++ {
		m.frames[i] = page.New()
		m.freeList.PushBack(page.FrameID(i))
	}
	return m
}

// Close releases resources the Manager holds that outlive any single page
// (currently just the observational frequency sketch).
func (m *Manager) Close() {
	m.sketch.close()
}

// takeFrameLocked obtains a frame to bind a page into: prefer the free list,
// else ask the replacer for a victim, writing it back first if dirty. Caller
// holds latch. Returns (0, false, nil) on exhaustion.
func (m *Manager) takeFrameLocked() (page.FrameID, bool, error) {
	if e := m.freeList.Front(); e != nil {
		m.freeList.Remove(e)
		return e.Value.(page.FrameID), true, nil
	}

	frameID, ok := m.replacer.Evict()
	if !ok {
		return 0, false, nil
	}

	f := m.frames[frameID]
	f.Lock()
	if f.IsDirty {
		if err := m.disk.WritePage(f.ID, f.Data); err != nil {
			f.Unlock()
			return 0, false, fmt.Errorf("bufferpool: write back frame %d during eviction: %w", frameID, err)
		}
		f.IsDirty = false
	}
	evicted := f.ID
	f.Unlock()
	m.dir.Remove(evicted)

	return frameID, true, nil
}

// NewPage allocates a fresh page id, binds it to a frame, and returns it
// pinned. Returns nil if the pool is exhausted.
func (m *Manager) NewPage() (*PageGuard, error) {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok, err := m.takeFrameLocked()
	if err != nil {
		return nil, err
	}
	if !ok {
		m.log.Debug("NewPage: exhausted")
		return nil, fmt.Errorf("bufferpool: new page: %w", ErrNoFreeFrame)
	}

	id := m.nextPageID
	m.nextPageID++

	f := m.frames[frameID]
	f.Lock()
	f.ResetMemory()
	f.ID = id
	f.IsDirty = false
	f.PinCount = 1
	f.Unlock()

	m.dir.Insert(id, frameID)
	m.replacer.RecordAccess(frameID)
	m.replacer.SetEvictable(frameID, false)

	m.log.WithField("page_id", id).WithField("frame_id", frameID).Debug("NewPage")
	return &PageGuard{p: f}, nil
}

// FetchPage returns a pinned handle to id, loading it from disk on a miss.
// Returns nil if id is not resident and the pool is exhausted.
func (m *Manager) FetchPage(id page.ID) (*PageGuard, error) {
	m.latch.Lock()
	defer m.latch.Unlock()

	if frameID, hit := m.dir.Find(id); hit {
		f := m.frames[frameID]
		f.Lock()
		f.PinCount++
		f.Unlock()
		m.replacer.RecordAccess(frameID)
		m.replacer.SetEvictable(frameID, false)
		m.sketch.touch(id, true)
		m.log.WithField("page_id", id).WithField("frame_id", frameID).Debug("FetchPage hit")
		return &PageGuard{p: f}, nil
	}

	frameID, ok, err := m.takeFrameLocked()
	if err != nil {
		return nil, err
	}
	if !ok {
		m.sketch.touch(id, false)
		m.log.WithField("page_id", id).Debug("FetchPage: exhausted")
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", id, ErrNoFreeFrame)
	}

	f := m.frames[frameID]
	f.Lock()
	f.ID = id
	f.IsDirty = false
	f.PinCount = 1
	if err := m.disk.ReadPage(id, f.Data); err != nil {
		f.Unlock()
		return nil, fmt.Errorf("bufferpool: read page %d: %w", id, err)
	}
	f.Unlock()

	m.dir.Insert(id, frameID)
	m.replacer.RecordAccess(frameID)
	m.replacer.SetEvictable(frameID, false)
	m.sketch.touch(id, false)

	m.log.WithField("page_id", id).WithField("frame_id", frameID).Debug("FetchPage miss")
	return &PageGuard{p: f}, nil
}

// UnpinPage decrements id's pin count and, once it reaches zero, marks its
// frame evictable. dirtyHint ORs into the frame's dirty flag; it can only
// ever set it, never clear it. Returns false if id is not resident (wrapping
// ErrNotResident) or is already fully unpinned.
func (m *Manager) UnpinPage(id page.ID, dirtyHint bool) (bool, error) {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok := m.dir.Find(id)
	if !ok {
		return false, fmt.Errorf("bufferpool: unpin page %d: %w", id, ErrNotResident)
	}

	f := m.frames[frameID]
	f.Lock()
	defer f.Unlock()

	if f.PinCount == 0 {
		return false, nil
	}
	f.PinCount--
	if dirtyHint {
		f.IsDirty = true
	}
	if f.PinCount == 0 {
		m.replacer.SetEvictable(frameID, true)
	}
	return true, nil
}

// FlushPage writes id's frame to disk if resident, clearing its dirty flag
// on success. Returns false if id is not resident.
func (m *Manager) FlushPage(id page.ID) (bool, error) {
	m.latch.Lock()
	defer m.latch.Unlock()
	return m.flushLocked(id)
}

func (m *Manager) flushLocked(id page.ID) (bool, error) {
	frameID, ok := m.dir.Find(id)
	if !ok {
		return false, fmt.Errorf("bufferpool: flush page %d: %w", id, ErrNotResident)
	}

	f := m.frames[frameID]
	f.Lock()
	defer f.Unlock()

	if err := m.disk.WritePage(f.ID, f.Data); err != nil {
		return false, fmt.Errorf("bufferpool: flush page %d: %w", id, err)
	}
	wasDirty := f.IsDirty
	f.IsDirty = false
	if m.logSink != nil {
		m.logSink.OnFlush(id, wasDirty)
	}
	return true, nil
}

// FlushAllPages writes every resident frame's bytes to disk.
func (m *Manager) FlushAllPages() error {
	m.latch.Lock()
	defer m.latch.Unlock()

	for _, f := range m.frames {
		f.Lock()
		id := f.ID
		f.Unlock()
		if id == page.InvalidID {
			continue
		}
		if _, err := m.flushLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes id from the pool. Returns true if id is not resident
// (already-deleted is success) or was successfully removed; false if it is
// still pinned.
func (m *Manager) DeletePage(id page.ID) (bool, error) {
	m.latch.Lock()
	defer m.latch.Unlock()

	frameID, ok := m.dir.Find(id)
	if !ok {
		if err := m.disk.DeallocatePage(id); err != nil {
			return false, fmt.Errorf("bufferpool: deallocate page %d: %w", id, err)
		}
		return true, nil
	}

	f := m.frames[frameID]
	f.Lock()
	if f.PinCount > 0 {
		f.Unlock()
		return false, fmt.Errorf("bufferpool: delete page %d: %w", id, ErrPagePinned)
	}
	if f.IsDirty {
		if err := m.disk.WritePage(f.ID, f.Data); err != nil {
			f.Unlock()
			return false, fmt.Errorf("bufferpool: write back page %d before delete: %w", id, err)
		}
	}
	f.ResetMemory()
	f.ID = page.InvalidID
	f.IsDirty = false
	f.PinCount = 0
	f.Unlock()

	m.dir.Remove(id)
	m.replacer.Remove(frameID)
	m.freeList.PushBack(frameID)

	if err := m.disk.DeallocatePage(id); err != nil {
		return false, fmt.Errorf("bufferpool: deallocate page %d: %w", id, err)
	}

	m.log.WithField("page_id", id).WithField("frame_id", frameID).Debug("DeletePage")
	return true, nil
}

// Stats reports current occupancy and the sketch-tracked hit rate.
func (m *Manager) Stats() Stats {
	m.latch.Lock()
	defer m.latch.Unlock()

	s := Stats{Capacity: m.poolSize, HitRate: m.sketch.hitRate()}
	for _, f := range m.frames {
		f.RLock()
		if f.ID != page.InvalidID {
			s.TotalPages++
		}
		if f.PinCount > 0 {
			s.PinnedPages++
		}
		if f.IsDirty {
			s.DirtyPages++
		}
		f.RUnlock()
	}
	return s
}
