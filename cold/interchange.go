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

package cold

import (
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/erigontech/crimeline/blob"
	"github.com/erigontech/crimeline/common"
)

// Interchange file format (spec.md §6, SPEC_FULL.md §4.4):
//
//	magic "CRIF" | u32 version
//	u64 epoch | u64 duration        -- file-level metadata
//	u32 row_count
//	u64 compressed_len
//	zstd(level 3)-compressed block: uid[]u32 | cid[]u64 | timestamp[]u64 | blob_len[]u32 | blob bytes
//	u64 xxhash64(uncompressed block) -- footer, checked before the zstd frame is trusted
const (
	interchangeMagic   = "CRIF"
	interchangeVersion = 1
	zstdLevel          = zstd.SpeedDefault // level ~3, klauspost's "default" preset
)

// Export writes the arena to the interchange columnar file format with
// schema {uid: u32, cid: u64, timestamp: u64, blob: Binary}, rows sorted
// ascending by (timestamp, cid) (already true of a, per Arena's construction
// invariant), and metadata keys epoch/duration restoring absolute time.
//
// cidAt supplies the Cid for each row since a Cold arena does not itself
// materialize cid (spec.md §3: "cid is materialized only through the blob
// payload's position"); callers that don't track cid separately from the
// blob payload may pass a function returning 0 for every row, though this
// diverges from a faithful interchange export.
func (a *Arena) Export(w io.Writer, cidAt func(row int) common.Cid) error {
	n := a.Len()

	uidBuf := make([]byte, n*4)
	cidBuf := make([]byte, n*8)
	tsBuf := make([]byte, n*8)
	lenBuf := make([]byte, n*4)
	var blobBuf []byte

	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(uidBuf[i*4:], a.uids[i])
		binary.LittleEndian.PutUint64(cidBuf[i*8:], cidAt(i))
		binary.LittleEndian.PutUint64(tsBuf[i*8:], uint64(a.TimestampAt(i)))
		b, err := a.store.Resolve(i)
		if err != nil {
			return errors.Wrap(common.ErrIoFailure, err.Error())
		}
		binary.LittleEndian.PutUint32(lenBuf[i*4:], uint32(len(b)))
		blobBuf = append(blobBuf, b...)
	}

	uncompressed := make([]byte, 0, len(uidBuf)+len(cidBuf)+len(tsBuf)+len(lenBuf)+len(blobBuf))
	uncompressed = append(uncompressed, uidBuf...)
	uncompressed = append(uncompressed, cidBuf...)
	uncompressed = append(uncompressed, tsBuf...)
	uncompressed = append(uncompressed, lenBuf...)
	uncompressed = append(uncompressed, blobBuf...)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		return errors.Wrap(common.ErrIoFailure, err.Error())
	}
	compressed := enc.EncodeAll(uncompressed, nil)
	enc.Close()

	header := make([]byte, 0, 4+4+8+8+4+8)
	header = append(header, interchangeMagic...)
	header = binary.LittleEndian.AppendUint32(header, interchangeVersion)
	header = binary.LittleEndian.AppendUint64(header, a.window.Epoch)
	header = binary.LittleEndian.AppendUint64(header, a.window.Duration)
	header = binary.LittleEndian.AppendUint32(header, uint32(n))
	header = binary.LittleEndian.AppendUint64(header, uint64(len(compressed)))

	if _, err := w.Write(header); err != nil {
		return errors.Wrap(common.ErrIoFailure, err.Error())
	}
	if _, err := w.Write(compressed); err != nil {
		return errors.Wrap(common.ErrIoFailure, err.Error())
	}
	checksum := xxhash.Sum64(uncompressed)
	footer := binary.LittleEndian.AppendUint64(nil, checksum)
	if _, err := w.Write(footer); err != nil {
		return errors.Wrap(common.ErrIoFailure, err.Error())
	}
	common.Logger().Debugw("cold arena exported", "rows", n, "compressed_bytes", len(compressed))
	return nil
}

// Import reads an interchange file, re-materializes it into a fresh
// runtime-format mmap tempfile under dir, and returns a new Arena. Because
// the interchange file is pre-sorted by (timestamp, cid), Import uses the
// identity permutation -- no sort (spec.md §4.4). A timestamp outside
// [epoch, epoch+duration) fails with ErrCorruptSlice.
func Import(r io.Reader, dir string) (*Arena, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	const headerLen = 4 + 4 + 8 + 8 + 4 + 8
	if len(raw) < headerLen+8 {
		return nil, errors.Wrap(common.ErrCorruptSlice, "file too small")
	}
	if string(raw[0:4]) != interchangeMagic {
		return nil, errors.Wrap(common.ErrCorruptSlice, "bad magic")
	}
	version := binary.LittleEndian.Uint32(raw[4:8])
	if version != interchangeVersion {
		return nil, errors.Wrapf(common.ErrCorruptSlice, "unsupported version %d", version)
	}
	epoch := binary.LittleEndian.Uint64(raw[8:16])
	duration := binary.LittleEndian.Uint64(raw[16:24])
	rowCount := binary.LittleEndian.Uint32(raw[24:28])
	compressedLen := binary.LittleEndian.Uint64(raw[28:36])

	body := raw[headerLen:]
	if uint64(len(body)) < compressedLen+8 {
		return nil, errors.Wrap(common.ErrCorruptSlice, "truncated body")
	}
	compressed := body[:compressedLen]
	wantChecksum := binary.LittleEndian.Uint64(body[compressedLen : compressedLen+8])

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(common.ErrIoFailure, err.Error())
	}
	defer dec.Close()
	uncompressed, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errors.Wrap(common.ErrCorruptSlice, err.Error())
	}
	if xxhash.Sum64(uncompressed) != wantChecksum {
		return nil, errors.Wrap(common.ErrCorruptSlice, "checksum mismatch")
	}

	n := int(rowCount)
	needed := n*4 + n*8 + n*8 + n*4
	if len(uncompressed) < needed {
		return nil, errors.Wrap(common.ErrCorruptSlice, "short column block")
	}

	window := common.Window{Epoch: epoch, Duration: duration}

	uidOff := 0
	cidOff := uidOff + n*4
	tsOff := cidOff + n*8
	lenOff := tsOff + n*8
	blobOff := lenOff + n*4

	uids := make([]common.Uid, n)
	relTs := make([]uint32, n)
	cids := make([]common.Cid, n)
	blobLens := make([]uint32, n)
	for i := 0; i < n; i++ {
		uids[i] = binary.LittleEndian.Uint32(uncompressed[uidOff+i*4:])
		cids[i] = binary.LittleEndian.Uint64(uncompressed[cidOff+i*8:])
		ts := int64(binary.LittleEndian.Uint64(uncompressed[tsOff+i*8:]))
		if !window.Contains(ts) {
			return nil, errors.Wrap(common.ErrCorruptSlice, "timestamp outside declared window")
		}
		relTs[i] = window.Relative(ts)
		blobLens[i] = binary.LittleEndian.Uint32(uncompressed[lenOff+i*4:])
	}
	if i, ok := firstDescending(cids, relTs); !ok {
		return nil, errors.Wrapf(common.ErrCorruptSlice, "rows not sorted by (timestamp, cid) at index %d", i)
	}

	b, err := blob.NewBuilder(dir)
	if err != nil {
		return nil, err
	}
	cursor := blobOff
	for i := 0; i < n; i++ {
		l := int(blobLens[i])
		if cursor+l > len(uncompressed) {
			_ = b.Abort()
			return nil, errors.Wrap(common.ErrCorruptSlice, "blob bytes run past end of block")
		}
		if _, err := b.Append(uncompressed[cursor : cursor+l]); err != nil {
			_ = b.Abort()
			return nil, err
		}
		cursor += l
	}
	store, err := b.Finalize()
	if err != nil {
		return nil, err
	}

	arena, err := New(window, uids, relTs, store)
	if err != nil {
		_ = store.Release()
		return nil, err
	}
	common.Logger().Infow("cold arena imported", "rows", n, "epoch", epoch, "duration", duration)
	return arena, nil
}

// firstDescending reports the first index where (relTs, cid) is not
// non-decreasing relative to its predecessor.
func firstDescending(cids []common.Cid, relTs []uint32) (int, bool) {
	for i := 1; i < len(relTs); i++ {
		if relTs[i] < relTs[i-1] {
			return i, false
		}
		if relTs[i] == relTs[i-1] && cids[i] < cids[i-1] {
			return i, false
		}
	}
	return 0, true
}
