// Package alloc provides space management for HDF5 file writing.
package alloc

import (
	"sync"
)

// Allocator hands out file space append-only: every allocation extends
// the end-of-file address. Freed space is not reclaimed.
type Allocator struct {
	mu       sync.Mutex
	eofAddr  uint64
	baseAddr uint64
}

// New creates an Allocator starting at the given base address, typically
// right after the superblock.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
	}
}

// Alloc reserves a block of the given size at EOF and returns its
// address.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eofAddr
	a.eofAddr += size
	return addr
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// SetEOFAddr sets the EOF address, used when opening an existing file.
func (a *Allocator) SetEOFAddr(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eofAddr = addr
}

// BaseAddr returns the start of allocatable space.
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}
