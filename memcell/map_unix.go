//go:build unix

package memcell

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map returns a cell backed by a shared file mapping, so independent
// processes mapping the same path observe the same cells. The file is
// created if absent and grown to size if shorter. Size must be a positive
// multiple of 4.
//
// The mapping outlives the file descriptor, which is closed before Map
// returns. Closing the cell unmaps the region.
func Map(path string, size int) (*Cell, error) {
	checkSize(size)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf(`memcell: map: %w`, err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err != nil {
		return nil, fmt.Errorf(`memcell: map: %w`, err)
	} else if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf(`memcell: map: %w`, err)
		}
	}
	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf(`memcell: map %q: %w`, path, err)
	}
	x := &Cell{b: b, unmap: unix.Munmap}
	x.refs.Store(1)
	return x, nil
}
