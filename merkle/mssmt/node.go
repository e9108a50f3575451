// Copyright 2026 The Sumtree Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mssmt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"math/bits"
)

// MaxSum is the largest sum a leaf or subtree may carry. It keeps every sum
// representable as a signed 64-bit integer, which is how relational backends
// store it.
const MaxSum = math.MaxInt64

// Key is the position of a leaf: bit i, counted from the most significant
// bit of the first byte, selects the left (0) or right (1) child at depth i.
type Key [HashSize]byte

// Bit returns the i-th bit of the key.
func (k Key) Bit(i int) uint8 {
	return (k[i/8] >> (7 - uint(i)%8)) & 1
}

// String returns the hex encoding of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// commonPrefixLen returns the number of leading bits shared by a and b.
func commonPrefixLen(a, b Key) int {
	for i := range a {
		if x := a[i] ^ b[i]; x != 0 {
			return i*8 + bits.LeadingZeros8(x)
		}
	}
	return MaxDepth
}

// Node is a node of the tree, identified by its hash and carrying the sum of
// all leaves below it.
type Node interface {
	NodeHash() NodeHash
	NodeSum() uint64
}

// ComputedNode is a subtree known only by its hash and sum.
type ComputedNode struct {
	Hash NodeHash
	Sum  uint64
}

// NodeHash implements Node.
func (c ComputedNode) NodeHash() NodeHash { return c.Hash }

// NodeSum implements Node.
func (c ComputedNode) NodeSum() uint64 { return c.Sum }

// BranchNode is an inner node. It references its children by hash, and
// carries the sum of both.
type BranchNode struct {
	hash  NodeHash
	Left  NodeHash
	Right NodeHash
	Sum   uint64
}

// NewBranchNode returns a branch with the given children. Fails with
// ErrSumOverflow if the children's sums add up to more than MaxSum.
func NewBranchNode(h *Hasher, left, right Node) (*BranchNode, error) {
	sum, err := addSums(left.NodeSum(), right.NodeSum())
	if err != nil {
		return nil, err
	}
	l, r := left.NodeHash(), right.NodeHash()
	return &BranchNode{hash: h.HashBranch(l, r, sum), Left: l, Right: r, Sum: sum}, nil
}

// NewStoredBranch returns a branch as read back from storage, where it was
// looked up by the given hash. The hash is not checked.
func NewStoredBranch(hash, left, right NodeHash, sum uint64) *BranchNode {
	return &BranchNode{hash: hash, Left: left, Right: right, Sum: sum}
}

// NodeHash implements Node.
func (b *BranchNode) NodeHash() NodeHash { return b.hash }

// NodeSum implements Node.
func (b *BranchNode) NodeSum() uint64 { return b.Sum }

// LeafNode is the content of a populated key.
type LeafNode struct {
	Key   Key
	Value []byte
	Sum   uint64
}

// Equal returns whether two leaves have the same content.
func (l *LeafNode) Equal(o *LeafNode) bool {
	return l.Key == o.Key && l.Sum == o.Sum && bytes.Equal(l.Value, o.Value)
}

// String returns a short description of the leaf.
func (l *LeafNode) String() string {
	return fmt.Sprintf("leaf{key: %s, value: %d bytes, sum: %d}", l.Key, len(l.Value), l.Sum)
}

// CompactedLeafNode is a leaf placed at the top of an otherwise empty
// subtree. Its hash is the hash of that subtree. A compacted leaf at MaxDepth
// is an ordinary leaf.
type CompactedLeafNode struct {
	*LeafNode
	hash  NodeHash
	depth int
}

// NewCompactedLeafNode returns the given leaf compacted to the given depth.
func NewCompactedLeafNode(h *Hasher, depth int, leaf *LeafNode) *CompactedLeafNode {
	return &CompactedLeafNode{
		LeafNode: leaf,
		hash:     h.HashCompacted(leaf.Key, leaf.Value, leaf.Sum, depth),
		depth:    depth,
	}
}

// NewStoredLeaf returns a leaf as read back from storage, where it was looked
// up by the given hash. Storage does not record the depth, so it is unknown
// (-1) until the tree places the leaf.
func NewStoredLeaf(hash NodeHash, leaf *LeafNode) *CompactedLeafNode {
	return &CompactedLeafNode{LeafNode: leaf, hash: hash, depth: -1}
}

// NodeHash implements Node.
func (c *CompactedLeafNode) NodeHash() NodeHash { return c.hash }

// NodeSum implements Node.
func (c *CompactedLeafNode) NodeSum() uint64 { return c.Sum }

// Depth returns the depth the leaf is compacted to, or -1 if unknown.
func (c *CompactedLeafNode) Depth() int { return c.depth }

// addSums returns a+b, or ErrSumOverflow if it exceeds MaxSum.
func addSums(a, b uint64) (uint64, error) {
	if a > MaxSum || b > MaxSum-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrSumOverflow, a, b)
	}
	return a + b, nil
}
