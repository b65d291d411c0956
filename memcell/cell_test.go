package memcell

import (
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func TestNewHeap_basic(t *testing.T) {
	c := NewHeap(16)
	defer c.Unref()
	if c.Size() != 16 {
		t.Fatalf(`size = %d, want 16`, c.Size())
	}
	if v := c.Load32(0); v != 0 {
		t.Fatalf(`initial value %d, want 0`, v)
	}
	c.Store32(4, 0xdeadbeef)
	if v := c.Load32(4); v != 0xdeadbeef {
		t.Fatalf(`got %#x, want 0xdeadbeef`, v)
	}
	if v := c.Load32(0); v != 0 {
		t.Fatal(`store bled into adjacent cell`)
	}
	if v := c.Add32(4, 1); v != 0xdeadbef0 {
		t.Fatalf(`add returned %#x`, v)
	}
}

func TestNewHeap_sizeValidation(t *testing.T) {
	for _, size := range [...]int{-4, 0, 1, 2, 3, 5, 7} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf(`size %d: expected panic`, size)
				}
			}()
			NewHeap(size)
		}()
	}
}

func TestCell_offsetValidation(t *testing.T) {
	c := NewHeap(8)
	defer c.Unref()
	for _, offset := range [...]int{-4, -1, 1, 2, 3, 5, 8, 12} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf(`offset %d: expected panic`, offset)
				}
			}()
			c.Load32(offset)
		}()
	}
}

func TestCell_concurrentAdd(t *testing.T) {
	const (
		workers = 8
		perG    = 1000
	)
	c := NewHeap(4)
	defer c.Unref()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				c.Add32(0, 1)
			}
		}()
	}
	wg.Wait()
	if v := c.Load32(0); v != workers*perG {
		t.Fatalf(`got %d, want %d`, v, workers*perG)
	}
}

func TestCell_refcount(t *testing.T) {
	c := NewHeap(4)
	c.Ref()
	c.Unref()
	if c.Size() != 4 {
		t.Fatal(`closed before final unref`)
	}
	c.Unref()
	if c.Size() != 0 {
		t.Fatal(`final unref did not close`)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error(`ref after close: expected panic`)
			}
		}()
		c.Ref()
	}()
}

func TestCell_closeIdempotent(t *testing.T) {
	c := NewHeap(4)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMap_sharedVisibility(t *testing.T) {
	if runtime.GOOS == `windows` {
		t.Skip(`file mapping unsupported`)
	}
	path := filepath.Join(t.TempDir(), `cells`)
	a, err := Map(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Unref()
	b, err := Map(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Unref()
	a.Store32(128, 42)
	if v := b.Load32(128); v != 42 {
		t.Fatalf(`independent mapping observed %d, want 42`, v)
	}
	b.Add32(128, 1)
	if v := a.Load32(128); v != 43 {
		t.Fatalf(`got %d, want 43`, v)
	}
}

func TestMap_errorPaths(t *testing.T) {
	if runtime.GOOS == `windows` {
		t.Skip(`file mapping unsupported`)
	}
	if _, err := Map(filepath.Join(t.TempDir(), `missing`, `cells`), 4096); err == nil {
		t.Fatal(`expected error for unreachable path`)
	}
}

func TestMap_unsupportedSentinel(t *testing.T) {
	if runtime.GOOS != `windows` {
		t.Skip(`only meaningful where mapping is unsupported`)
	}
	if _, err := Map(filepath.Join(t.TempDir(), `cells`), 4096); !errors.Is(err, errors.ErrUnsupported) {
		t.Fatalf(`got %v, want ErrUnsupported`, err)
	}
}
