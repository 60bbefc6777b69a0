// Package replacer implements the LRU-K eviction policy used by the buffer
// pool manager to pick a victim frame when the pool is full. A frame with
// fewer than K recorded accesses is "cold" and always loses to a "hot"
// frame (one with K or more); within each class the oldest reference wins.
//
// The list bookkeeping follows the container/list + map[id]*list.Element
// idiom the retrieved corpus uses for its (plain, K=1) LRU replacers; this
// implementation keeps two such lists — one for cold frames, one for hot —
// per the LRU-K policy's hot/cold split.
package replacer

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"QuayDB/internal/page"
)

// InvalidFrameID is returned alongside ok=false from Evict when nothing is
// evictable.
const InvalidFrameID page.FrameID = -1

type node struct {
	frameID     page.FrameID
	history     []int64 // oldest first, length <= k
	isEvictable bool
}

// Replacer tracks per-frame access history and evictability for up to
// capacity frames under the LRU-K policy.
type Replacer struct {
	mu sync.Mutex

	capacity  int
	k         int
	timestamp int64

	info map[page.FrameID]*node

	historyList *list.List // cold frames, front = oldest first access
	historyElem map[page.FrameID]*list.Element

	cacheList *list.List // hot frames, ascending by k-th-most-recent timestamp
	cacheElem map[page.FrameID]*list.Element

	evictableCount int

	log logrus.FieldLogger
}

// New constructs a replacer for up to capacity frames using the LRU-K
// policy with the given k (k must be > 0).
func New(capacity, k int, log logrus.FieldLogger) *Replacer {
	if log == nil {
		log = logrus.New()
	}
	return &Replacer{
		capacity:    capacity,
		k:           k,
		info:        make(map[page.FrameID]*node, capacity),
		historyList: list.New(),
		historyElem: make(map[page.FrameID]*list.Element, capacity),
		cacheList:   list.New(),
		cacheElem:   make(map[page.FrameID]*list.Element, capacity),
		log:         log.WithField("component", "replacer"),
	}
}

// RecordAccess registers an access to frameID at the next logical
// timestamp, creating a tracking record for it if this is its first
// access, and repositioning it between the cold and hot lists as its
// history crosses the K threshold.
func (r *Replacer) RecordAccess(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timestamp++
	ts := r.timestamp

	n, ok := r.info[frameID]
	if !ok {
		n = &node{frameID: frameID, history: []int64{ts}}
		r.info[frameID] = n
		if len(n.history) >= r.k {
			r.cacheInsertLocked(n)
		} else {
			r.historyElem[frameID] = r.historyList.PushBack(frameID)
		}
		return
	}

	n.history = append(n.history, ts)
	switch {
	case len(n.history) < r.k:
		// stays cold; no list change needed.
	case len(n.history) == r.k:
		if elem, ok := r.historyElem[frameID]; ok {
			r.historyList.Remove(elem)
			delete(r.historyElem, frameID)
		}
		r.cacheInsertLocked(n)
	default:
		n.history = n.history[1:]
		if elem, ok := r.cacheElem[frameID]; ok {
			r.cacheList.Remove(elem)
			delete(r.cacheElem, frameID)
		}
		r.cacheInsertLocked(n)
	}
}

// cacheInsertLocked inserts frameID into cacheList keeping it sorted
// ascending by the K-th-most-recent (i.e. oldest remaining) timestamp in
// its history. Caller holds mu.
func (r *Replacer) cacheInsertLocked(n *node) {
	key := n.history[0]
	for e := r.cacheList.Front(); e != nil; e = e.Next() {
		other := r.info[e.Value.(page.FrameID)]
		if other.history[0] > key {
			r.cacheElem[n.frameID] = r.cacheList.InsertBefore(n.frameID, e)
			return
		}
	}
	r.cacheElem[n.frameID] = r.cacheList.PushBack(n.frameID)
}

// SetEvictable marks frameID evictable or not, adjusting the evictable
// count by the delta. frameID must already be tracked (via RecordAccess)
// and in range — violating either is a programming error.
func (r *Replacer) SetEvictable(frameID page.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	assertf(int(frameID) >= 0 && int(frameID) < r.capacity, "replacer: frame id %d out of range [0,%d)", frameID, r.capacity)
	n, ok := r.info[frameID]
	assertf(ok, "replacer: SetEvictable on untracked frame %d", frameID)

	if n.isEvictable == evictable {
		return
	}
	n.isEvictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
}

// Remove drops frameID's tracking record entirely. frameID must be
// evictable; removing an untracked frame is a no-op.
func (r *Replacer) Remove(frameID page.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.info[frameID]
	if !ok {
		return
	}
	assertf(n.isEvictable, "replacer: Remove on non-evictable frame %d", frameID)
	r.detachLocked(frameID)
	r.evictableCount--
}

// Evict picks a victim: the front (oldest) evictable entry of historyList
// if any exists, else the front (smallest k-th-timestamp) evictable entry
// of cacheList. The chosen frame's record is purged entirely.
func (r *Replacer) Evict() (page.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for e := r.historyList.Front(); e != nil; e = e.Next() {
		fid := e.Value.(page.FrameID)
		if r.info[fid].isEvictable {
			r.detachLocked(fid)
			r.evictableCount--
			r.log.WithField("frame_id", fid).Debug("evicted cold frame")
			return fid, true
		}
	}
	for e := r.cacheList.Front(); e != nil; e = e.Next() {
		fid := e.Value.(page.FrameID)
		if r.info[fid].isEvictable {
			r.detachLocked(fid)
			r.evictableCount--
			r.log.WithField("frame_id", fid).Debug("evicted hot frame")
			return fid, true
		}
	}
	return InvalidFrameID, false
}

// detachLocked removes frameID from whichever list holds it and drops its
// info record. Caller holds mu and decrements evictableCount itself.
func (r *Replacer) detachLocked(frameID page.FrameID) {
	if elem, ok := r.historyElem[frameID]; ok {
		r.historyList.Remove(elem)
		delete(r.historyElem, frameID)
	}
	if elem, ok := r.cacheElem[frameID]; ok {
		r.cacheList.Remove(elem)
		delete(r.cacheElem, frameID)
	}
	delete(r.info, frameID)
}

// Size returns the number of currently evictable tracked frames.
func (r *Replacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableCount
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
