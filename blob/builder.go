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
	"bufio"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/erigontech/crimeline/common"
)

// Builder streams blobs to a temp file in the runtime columnar format during
// Hot ingestion. Single-threaded, owned exclusively by one Hot arena.
type Builder struct {
	f       *os.File
	w       *bufio.Writer
	offsets []uint64 // offsets[i] is the start of blob i; len == n+1 once the trailing end marker is appended
	cur     uint64
	closed  bool
}

// NewBuilder creates a fresh temp file under dir (os.TempDir() if dir is
// empty) to stream blobs into.
func NewBuilder(dir string) (*Builder, error) {
	f, err := os.CreateTemp(dir, "crimeline-hot-*.blob")
	if err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	return &Builder{
		f:       f,
		w:       bufio.NewWriterSize(f, 1<<20),
		offsets: []uint64{0},
	}, nil
}

// Append streams data to the temp file and returns its position token (a
// dense row index starting at 0). O(1) amortized; performs no allocation
// beyond the bufio writer's own buffering.
func (b *Builder) Append(data []byte) (int, error) {
	if b.closed {
		return 0, common.ErrSealed
	}
	if _, err := b.w.Write(data); err != nil {
		return 0, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	b.cur += uint64(len(data))
	b.offsets = append(b.offsets, b.cur)
	return len(b.offsets) - 2, nil
}

// Len returns the number of blobs appended so far.
func (b *Builder) Len() int {
	return len(b.offsets) - 1
}

// Finalize flushes the writer, appends the offset table and footer, closes
// the writer, and mmaps the now-sealed file as a read-only *Store. The
// Builder must not be used afterward.
func (b *Builder) Finalize() (*Store, error) {
	if b.closed {
		return nil, common.ErrSealed
	}
	b.closed = true

	if err := b.w.Flush(); err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}

	offsetBytes := encodeOffsets(b.offsets)
	if _, err := b.f.Write(offsetBytes); err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}

	checksum := xxhash.Sum64(offsetBytes)
	count := uint32(len(b.offsets) - 1)
	if _, err := b.f.Write(encodeFooter(count, checksum)); err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}

	if err := b.f.Sync(); err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	path := b.f.Name()
	if err := b.f.Close(); err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}

	store, err := Open(path, true)
	if err != nil {
		return nil, err
	}
	common.Logger().Debugw("blob store finalized", "path", path, "blobs", count)
	return store, nil
}

// Abort discards the temp file without finalizing it. Used when Hot
// ingestion fails before sealing.
func (b *Builder) Abort() error {
	if b.closed {
		return nil
	}
	b.closed = true
	path := b.f.Name()
	_ = b.f.Close()
	return os.Remove(path)
}
