// Copyright 2026 The Crimeline Authors
// This file is part of crimeline.
//
// crimeline is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crimeline is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crimeline. If not, see <http://www.gnu.org/licenses/>.

package blob

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/erigontech/crimeline/common"
)

// Store is a read-only mmap of a runtime columnar blob file. Resolve yields
// byte views borrowed from the mapping -- no copy, no allocation, no I/O.
// Store is reference-counted: the mapping (and, if removeOnClose is set, the
// backing temp file) is released only when the last reference drops, which
// is what lets a Cold arena outlive its removal from a Timeline as long as
// some snapshot still holds it (SPEC_FULL.md §4.5, spec.md §9).
type Store struct {
	path          string
	f             *os.File
	data          mmap.MMap
	offsets       []uint64
	removeOnClose bool
	refs          atomic.Int32
}

// Open mmaps path read-only and validates its footer. removeOnClose controls
// whether the backing file is deleted when the last reference is released
// (true for Hot-owned runtime files, false for externally-supplied ones).
func Open(path string, removeOnClose bool) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	if fi.Size() < footerSize {
		f.Close()
		return nil, errors.Wrap(common.ErrCorruptSlice, "file too small for footer")
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	adviseRandom(data)

	n := len(data)
	ft, ok := decodeFooter(data[n-footerSize:])
	if !ok {
		data.Unmap()
		f.Close()
		return nil, errors.Wrap(common.ErrCorruptSlice, "bad magic")
	}

	offsetsLen := int(ft.count+1) * 8
	if n-footerSize-offsetsLen < 0 {
		data.Unmap()
		f.Close()
		return nil, errors.Wrap(common.ErrCorruptSlice, "offset table out of range")
	}
	offsetBytes := data[n-footerSize-offsetsLen : n-footerSize]
	if xxhash.Sum64(offsetBytes) != ft.checksum {
		data.Unmap()
		f.Close()
		return nil, errors.Wrap(common.ErrCorruptSlice, "offset table checksum mismatch")
	}

	s := &Store{
		path:          path,
		f:             f,
		data:          data,
		offsets:       decodeOffsets(offsetBytes),
		removeOnClose: removeOnClose,
	}
	s.refs.Store(1)
	return s, nil
}

// Len returns the number of blobs in the store.
func (s *Store) Len() int {
	return len(s.offsets) - 1
}

// Resolve returns a byte slice borrowed from the mmap for blob i. The
// returned slice must not be used after the Store's last reference is
// released. Performs only a bounds check and a slice expression -- no
// allocation, no I/O.
func (s *Store) Resolve(i int) ([]byte, error) {
	if i < 0 || i >= s.Len() {
		return nil, fmt.Errorf("blob index %d out of range [0,%d)", i, s.Len())
	}
	return s.data[s.offsets[i]:s.offsets[i+1]], nil
}

// Acquire increments the reference count and returns the same Store, so
// callers can share one mapping across multiple owners (e.g. a Cold arena
// and each outstanding Timeline snapshot that references it).
func (s *Store) Acquire() *Store {
	s.refs.Add(1)
	return s
}

// Release decrements the reference count. At zero, the mapping is unmapped
// and, if removeOnClose, the backing file is deleted.
func (s *Store) Release() error {
	if s.refs.Add(-1) > 0 {
		return nil
	}
	err := s.data.Unmap()
	closeErr := s.f.Close()
	if err == nil {
		err = closeErr
	}
	if s.removeOnClose {
		if rmErr := os.Remove(s.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	if err != nil {
		return errors.Wrap(common.ErrIoFailure, err.Error())
	}
	return nil
}
