package hashdir

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
)

// writeHashable feeds key's bytes into h. Go generics give no built-in way
// to hash an arbitrary comparable type, so the common fixed-width key kinds
// the buffer pool and its tests actually use (the production PageID
// instantiation plus int/string-keyed test instantiations) are special
// cased; anything else falls back to its default %v formatting, which is
// correct — if slower — for comparable types whose equal values always
// format the same. It is not for floating-point keys (or values holding
// them): 0 and -0 compare equal but format differently.
func writeHashable[K comparable](h *maphash.Hash, key K) {
	switch v := any(key).(type) {
	case int32:
		writeUint64(h, uint64(uint32(v)))
	case int64:
		writeUint64(h, uint64(v))
	case int:
		writeUint64(h, uint64(v))
	case uint32:
		writeUint64(h, uint64(v))
	case uint64:
		writeUint64(h, v)
	case string:
		_, _ = h.WriteString(v)
	default:
		fmt.Fprintf(h, "%v", v)
	}
}

func writeUint64(h *maphash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}
