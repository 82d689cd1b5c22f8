package mmapmovie

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

// mapFile maps the first numBytes of f. The caller must release the
// returned mapping with unmapFile on every exit path.
func mapFile(f *os.File, numBytes int64, writable bool) (mmap.MMap, error) {
	if numBytes <= 0 || uint64(numBytes) > math.MaxInt {
		return nil, fmt.Errorf("cannot map %d bytes", numBytes)
	}
	prot := mmap.RDONLY
	if writable {
		prot = mmap.RDWR
	}
	return mmap.MapRegion(f, int(numBytes), prot, 0, 0)
}

// unmapFile flushes a writable mapping to the file and unmaps it
func unmapFile(m mmap.MMap, writable bool) error {
	var flushErr error
	if writable {
		flushErr = m.Flush()
	}
	return errors.Join(flushErr, m.Unmap())
}
