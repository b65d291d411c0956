//go:build !unix

package memcell

import (
	"errors"
	"fmt"
)

// Map is unsupported on this platform and always returns an error matching
// [errors.ErrUnsupported]. Use [NewHeap] instead.
func Map(path string, size int) (*Cell, error) {
	checkSize(size)
	return nil, fmt.Errorf(`memcell: map %q: %w`, path, errors.ErrUnsupported)
}
