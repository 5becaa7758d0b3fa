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

package relationships

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crimeline/usermap"
)

func newRelationships(t *testing.T) *Relationships {
	t.Helper()
	follows, err := usermap.New(4)
	require.NoError(t, err)
	blocks, err := usermap.New(4)
	require.NoError(t, err)
	return New(follows, blocks)
}

// TestRelationshipsComposition is scenario S5 from spec.md §8.
func TestRelationshipsComposition(t *testing.T) {
	r := newRelationships(t)
	r.Follow(2, 1)
	r.Block(1, 2)

	require.True(t, r.IsFollowedBy(1, 2))
	require.True(t, r.IsBlockedBy(2, 1))
	require.True(t, r.IsMutual(1, 2))
}

func TestIsFollowedByIsDirectional(t *testing.T) {
	r := newRelationships(t)
	r.Follow(2, 1)

	require.True(t, r.IsFollowedBy(1, 2), "2 follows 1, so 1 is followed by 2")
	require.False(t, r.IsFollowedBy(2, 1), "1 does not follow 2")
}

// TestIsMutualPreservesAsymmetricDefinition documents that is_mutual is the
// literal spec definition -- blocks.contains(p,t) AND follows.contains(t,p)
// -- not the conventional "both follow each other" notion.
func TestIsMutualPreservesAsymmetricDefinition(t *testing.T) {
	r := newRelationships(t)
	r.Follow(1, 2)
	r.Follow(2, 1)
	require.False(t, r.IsMutual(1, 2), "mutual following alone is not is_mutual per the stated definition")

	r.Block(1, 2)
	require.True(t, r.IsMutual(1, 2), "blocks(1,2) AND follows(2,1) satisfies the literal definition")
}
