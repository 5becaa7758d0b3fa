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

// Package usermap implements the sharded, lock-partitioned backbone of
// sorted adjacency sets shared by both follows and blocks relations
// (spec.md §3/§4.6/§9).
package usermap

import (
	"math/bits"

	"github.com/erigontech/crimeline/common"
)

// UserMap maps Uid -> sorted set of Uid, split across a fixed, power-of-two
// number of shards. shard_idx = uid & (S-1); backbone_idx = uid >> log2(S),
// so dense contiguous uid ranges distribute evenly across shards (spec.md §9).
type UserMap struct {
	shards    []*shard
	shardMask uint32
	shardBits uint
}

// New constructs a UserMap with shardCount shards. shardCount must be a
// power of two in [2, 4096]; otherwise construction fails with
// ErrBadShardCount.
func New(shardCount int) (*UserMap, error) {
	if shardCount < 2 || shardCount > 4096 || shardCount&(shardCount-1) != 0 {
		return nil, common.ErrBadShardCount
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = newShard()
	}
	return &UserMap{
		shards:    shards,
		shardMask: uint32(shardCount - 1),
		shardBits: uint(bits.TrailingZeros(uint(shardCount))),
	}, nil
}

func (m *UserMap) locate(p common.Uid) (*shard, uint32) {
	idx := p & m.shardMask
	backbone := p >> m.shardBits
	return m.shards[idx], backbone
}

// Contains reports whether t is in principal's target set. Read lock on one
// shard only; O(log t).
func (m *UserMap) Contains(p, t common.Uid) bool {
	s, backbone := m.locate(p)
	return s.contains(backbone, t)
}

// Add inserts t into principal's target set. Write lock on one shard only;
// never fails semantically -- returns whether t was newly added.
func (m *UserMap) Add(p, t common.Uid) bool {
	s, backbone := m.locate(p)
	added := s.add(backbone, t)
	if added {
		common.Logger().Debugw("usermap add", "principal", p, "target", t)
	}
	return added
}

// AddBulk inserts every target into principal's set, sorting the batch and
// merging it in one pass. Returns the number newly added.
func (m *UserMap) AddBulk(p common.Uid, targets []common.Uid) int {
	s, backbone := m.locate(p)
	return s.addBulk(backbone, targets)
}

// Remove deletes t from principal's target set, if present.
func (m *UserMap) Remove(p, t common.Uid) bool {
	s, backbone := m.locate(p)
	return s.remove(backbone, t)
}

// Principals returns every Uid that currently owns a non-empty target set.
// Enumerates via each shard's auxiliary Roaring bitmap rather than a linear
// scan of a potentially sparse backbone.
func (m *UserMap) Principals() []common.Uid {
	var out []common.Uid
	for shardIdx, s := range m.shards {
		for _, backbone := range s.principals() {
			out = append(out, (backbone<<m.shardBits)|uint32(shardIdx))
		}
	}
	return out
}

// ShardCount returns the number of shards this UserMap was constructed with.
func (m *UserMap) ShardCount() int { return len(m.shards) }
