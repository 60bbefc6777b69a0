package diskio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"QuayDB/internal/page"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

func TestFileManagerWriteThenRead(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	id, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("Failed to allocate page: %v", err)
	}
	if id != 0 {
		t.Errorf("Expected first allocated id to be 0, got %d", id)
	}

	want := make([]byte, page.Size)
	copy(want, []byte("Hello, Disk Manager!"))
	if err := fm.WritePage(id, want); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	got := make([]byte, page.Size)
	if err := fm.ReadPage(id, got); err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}

	if !bytes.Equal(want, got) {
		t.Errorf("Data mismatch: expected %q, got %q", string(want[:20]), string(got[:20]))
	}
}

func TestFileManagerReadUnwrittenSlotIsZeroFilled(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	id, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("Failed to allocate page: %v", err)
	}

	got := make([]byte, page.Size)
	if err := fm.ReadPage(id, got); err != nil {
		t.Fatalf("Failed to read unwritten page: %v", err)
	}

	for i, b := range got {
		if b != 0 {
			t.Fatalf("expected zero-filled page at byte %d, got %d", i, b)
		}
	}
}

func TestFileManagerWriteRejectsWrongSizedBuffer(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	id, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("Failed to allocate page: %v", err)
	}

	if err := fm.WritePage(id, make([]byte, page.Size-1)); err == nil {
		t.Error("Expected error when writing data smaller than page.Size")
	}
	if err := fm.WritePage(id, make([]byte, page.Size+1)); err == nil {
		t.Error("Expected error when writing data larger than page.Size")
	}
	if err := fm.WritePage(id, make([]byte, page.Size)); err != nil {
		t.Errorf("Writing correct size data should succeed, got: %v", err)
	}
}

func TestFileManagerAllocatePageIsMonotonic(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	const n = 5
	ids := make([]page.ID, n)
	for i := 0; i < n; i++ {
		id, err := fm.AllocatePage()
		if err != nil {
			t.Fatalf("Failed to allocate page %d: %v", i, err)
		}
		ids[i] = id
	}
	for i, id := range ids {
		if id != page.ID(i) {
			t.Errorf("Expected page %d to get id %d, got %d", i, i, id)
		}
	}
}

func TestFileManagerDeallocatePageIsReused(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	id0, _ := fm.AllocatePage()
	id1, _ := fm.AllocatePage()

	if err := fm.DeallocatePage(id0); err != nil {
		t.Fatalf("Failed to deallocate page %d: %v", id0, err)
	}

	reused, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("Failed to allocate after deallocate: %v", err)
	}
	if reused != id0 {
		t.Errorf("Expected freed slot %d to be reused, got %d", id0, reused)
	}

	_ = id1
}

func TestFileManagerPersistsAcrossReopen(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}

	id, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("Failed to allocate page: %v", err)
	}
	want := make([]byte, page.Size)
	copy(want, []byte("persisted"))
	if err := fm.WritePage(id, want); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if err := fm.Shutdown(); err != nil {
		t.Fatalf("Failed to shut down: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to reopen file manager: %v", err)
	}
	defer reopened.Shutdown()

	got := make([]byte, page.Size)
	if err := reopened.ReadPage(id, got); err != nil {
		t.Fatalf("Failed to read persisted page: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("Data not persisted correctly: expected %q, got %q", string(want[:9]), string(got[:9]))
	}
}

func TestFileManagerMultiplePages(t *testing.T) {
	path := tempDBPath(t)

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file manager: %v", err)
	}
	defer fm.Shutdown()

	const numPages = 5
	ids := make([]page.ID, numPages)
	data := make([][]byte, numPages)

	for i := 0; i < numPages; i++ {
		id, err := fm.AllocatePage()
		if err != nil {
			t.Fatalf("Failed to allocate page %d: %v", i, err)
		}
		ids[i] = id

		buf := make([]byte, page.Size)
		copy(buf, []byte{byte(i), byte(i + 1), byte(i + 2)})
		data[i] = buf

		if err := fm.WritePage(id, buf); err != nil {
			t.Fatalf("Failed to write page %d: %v", i, err)
		}
	}

	for i := 0; i < numPages; i++ {
		got := make([]byte, page.Size)
		if err := fm.ReadPage(ids[i], got); err != nil {
			t.Fatalf("Failed to read page %d: %v", i, err)
		}
		if !bytes.Equal(data[i], got) {
			t.Errorf("Page %d data mismatch", i)
		}
	}
}

func TestOpenCreatesFileIfMissing(t *testing.T) {
	path := tempDBPath(t)
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("test setup error: %s should not exist yet", path)
	}

	fm, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to create file manager: %v", err)
	}
	defer fm.Shutdown()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected Open to create %s, got: %v", path, err)
	}
}
