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

// Package relationships composes two usermap.UserMap instances -- follows
// and blocks -- into the social-graph predicates package scan filters on
// (spec.md §3/§4.7).
package relationships

import (
	"github.com/erigontech/crimeline/common"
	"github.com/erigontech/crimeline/usermap"
)

// Relationships holds the follows and blocks adjacency backbones for the
// whole principal space. Both are independent UserMap instances; nothing
// here enforces that a block implies an unfollow or vice versa -- callers
// own that policy.
type Relationships struct {
	follows *usermap.UserMap
	blocks  *usermap.UserMap
}

// New constructs a Relationships over the given follows and blocks maps.
func New(follows, blocks *usermap.UserMap) *Relationships {
	return &Relationships{follows: follows, blocks: blocks}
}

// Follows returns the underlying follows UserMap.
func (r *Relationships) Follows() *usermap.UserMap { return r.follows }

// Blocks returns the underlying blocks UserMap.
func (r *Relationships) Blocks() *usermap.UserMap { return r.blocks }

// Follow records that p follows t.
func (r *Relationships) Follow(p, t common.Uid) bool { return r.follows.Add(p, t) }

// Unfollow removes p's follow of t.
func (r *Relationships) Unfollow(p, t common.Uid) bool { return r.follows.Remove(p, t) }

// Block records that p blocks t.
func (r *Relationships) Block(p, t common.Uid) bool { return r.blocks.Add(p, t) }

// Unblock removes p's block of t.
func (r *Relationships) Unblock(p, t common.Uid) bool { return r.blocks.Remove(p, t) }

// IsFollowedBy reports whether t follows p -- edge direction matters: this
// answers "is p followed by t", not "does p follow t".
func (r *Relationships) IsFollowedBy(p, t common.Uid) bool { return r.follows.Contains(t, p) }

// IsBlockedBy reports whether t blocks p -- edge direction matters: this
// answers "is p blocked by t", not "does p block t".
func (r *Relationships) IsBlockedBy(p, t common.Uid) bool { return r.blocks.Contains(t, p) }

// IsMutual reports the "mutual" relation exactly as specified: p blocks t
// AND t follows p. This reads as an unusual, asymmetric definition -- it is
// not "p and t follow each other" -- but it is preserved verbatim rather
// than corrected to the conventional mutual-follow meaning (spec.md open
// question, resolved in favor of the literal definition).
func (r *Relationships) IsMutual(p, t common.Uid) bool {
	return r.blocks.Contains(p, t) && r.follows.Contains(t, p)
}
