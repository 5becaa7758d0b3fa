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

package usermap

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/erigontech/crimeline/common"
)

// shard owns a slice of the principal uid space: a dense backbone vector
// indexed by backbone_idx, each slot a sorted, duplicate-free vector of
// target uids. A single sync.RWMutex per shard bounds lock contention to
// readers/writers of the same shard (spec.md §4.6/§5/§9); Go's RWMutex never
// poisons on a panicking writer, matching the "reject std-style poisoning
// locks" rationale verbatim in languages where that's a live concern.
type shard struct {
	mu       sync.RWMutex
	backbone [][]common.Uid
	// populated tracks which backbone indices hold a non-empty slot, so
	// Principals() can enumerate in O(popcount) instead of scanning a
	// potentially sparse backbone linearly.
	populated *roaring.Bitmap
}

func newShard() *shard {
	return &shard{populated: roaring.New()}
}

func (s *shard) ensure(backboneIdx uint32) {
	if int(backboneIdx) >= len(s.backbone) {
		grown := make([][]common.Uid, backboneIdx+1)
		copy(grown, s.backbone)
		s.backbone = grown
	}
}

func (s *shard) markPopulated(backboneIdx uint32, populated bool) {
	if populated {
		s.populated.Add(backboneIdx)
	} else {
		s.populated.Remove(backboneIdx)
	}
}

// contains reports whether target is present in principal's slot.
// O(log t) binary search; read lock only.
func (s *shard) contains(backboneIdx uint32, target common.Uid) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(backboneIdx) >= len(s.backbone) {
		return false
	}
	slot := s.backbone[backboneIdx]
	i := sort.Search(len(slot), func(i int) bool { return slot[i] >= target })
	return i < len(slot) && slot[i] == target
}

// add inserts target into principal's slot if absent. O(log t) search plus
// O(t) shift for the sorted-vector insert. Write lock.
func (s *shard) add(backboneIdx uint32, target common.Uid) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(backboneIdx)
	slot := s.backbone[backboneIdx]
	i := sort.Search(len(slot), func(i int) bool { return slot[i] >= target })
	if i < len(slot) && slot[i] == target {
		return false
	}
	slot = append(slot, 0)
	copy(slot[i+1:], slot[i:])
	slot[i] = target
	s.backbone[backboneIdx] = slot
	s.markPopulated(backboneIdx, true)
	return true
}

// addBulk sorts the batch and merges it into principal's slot in one pass:
// O(k log k) to sort the batch, O(t+k) to merge. Write lock. Returns the
// count of targets actually added (excluding duplicates already present or
// repeated within targets).
func (s *shard) addBulk(backboneIdx uint32, targets []common.Uid) int {
	if len(targets) == 0 {
		return 0
	}
	batch := append([]common.Uid(nil), targets...)
	sort.Slice(batch, func(i, j int) bool { return batch[i] < batch[j] })
	batch = dedupSorted(batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(backboneIdx)
	existing := s.backbone[backboneIdx]

	merged := make([]common.Uid, 0, len(existing)+len(batch))
	i, j, added := 0, 0, 0
	for i < len(existing) && j < len(batch) {
		switch {
		case existing[i] < batch[j]:
			merged = append(merged, existing[i])
			i++
		case existing[i] > batch[j]:
			merged = append(merged, batch[j])
			j++
			added++
		default:
			merged = append(merged, existing[i])
			i++
			j++
		}
	}
	merged = append(merged, existing[i:]...)
	for ; j < len(batch); j++ {
		merged = append(merged, batch[j])
		added++
	}

	s.backbone[backboneIdx] = merged
	s.markPopulated(backboneIdx, len(merged) > 0)
	return added
}

// remove deletes target from principal's slot if present. O(log t) search
// plus O(t) shift. Write lock.
func (s *shard) remove(backboneIdx uint32, target common.Uid) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(backboneIdx) >= len(s.backbone) {
		return false
	}
	slot := s.backbone[backboneIdx]
	i := sort.Search(len(slot), func(i int) bool { return slot[i] >= target })
	if i >= len(slot) || slot[i] != target {
		return false
	}
	copy(slot[i:], slot[i+1:])
	slot = slot[:len(slot)-1]
	s.backbone[backboneIdx] = slot
	s.markPopulated(backboneIdx, len(slot) > 0)
	return true
}

// principals returns the backbone indices with a non-empty slot, via the
// auxiliary Roaring bitmap rather than a linear scan.
func (s *shard) principals() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populated.ToArray()
}

func dedupSorted(sorted []common.Uid) []common.Uid {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
