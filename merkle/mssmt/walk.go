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
	"context"
	"errors"

	"k8s.io/klog/v2"
)

// path is the result of walking down the path of a key.
type path struct {
	// branches[d] is the branch at depth d on the key's path.
	branches []*BranchNode
	// siblings[d] is the sibling of the path node at depth d+1, i.e. the
	// child of branches[d] off the path.
	siblings []ComputedNode
	// leaf is the node ending the walk at depth len(branches), or nil if the
	// walk ended at an empty subtree.
	leaf *CompactedLeafNode
}

// depth returns the depth of the node ending the walk.
func (p *path) depth() int {
	return len(p.branches)
}

// proof converts the walk into a proof.
func (p *path) proof() *Proof {
	d := p.depth()
	pr := &Proof{Siblings: make([]ComputedNode, d)}
	for i, sib := range p.siblings {
		pr.Siblings[d-1-i] = sib
	}
	switch {
	case p.leaf == nil:
		pr.Kind = TerminalEmpty
	case d == MaxDepth:
		pr.Kind, pr.Leaf = TerminalLeaf, p.leaf.LeafNode
	default:
		pr.Kind, pr.Leaf = TerminalCompacted, p.leaf.LeafNode
	}
	return pr
}

// getNode reads the node with the given hash located at the given depth,
// and checks that it hashes to that hash. Leaves are returned compacted to
// the depth.
func getNode(ctx context.Context, tx ReadOnlyTreeTX, h *Hasher, hash NodeHash, depth int) (Node, error) {
	node, err := tx.GetNode(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			klog.Warningf("mssmt: node %s at depth %d is referenced but missing", hash, depth)
		}
		return nil, storeError("GetNode", err)
	}
	switch n := node.(type) {
	case *BranchNode:
		if depth >= MaxDepth {
			return nil, corruptf(hash, depth, "branch below the leaf level")
		}
		if n.Sum > MaxSum {
			return nil, corruptf(hash, depth, "sum %d out of range", n.Sum)
		}
		if got := h.HashBranch(n.Left, n.Right, n.Sum); got != hash {
			return nil, corruptf(hash, depth, "branch hashes to %s", got)
		}
		return n, nil
	case *CompactedLeafNode:
		if depth == 0 {
			return nil, corruptf(hash, depth, "leaf as a tree root")
		}
		if n.LeafNode == nil || n.Sum > MaxSum {
			return nil, corruptf(hash, depth, "malformed leaf")
		}
		leaf := NewCompactedLeafNode(h, depth, n.LeafNode)
		if got := leaf.NodeHash(); got != hash {
			return nil, corruptf(hash, depth, "leaf hashes to %s", got)
		}
		return leaf, nil
	default:
		return nil, corruptf(hash, depth, "unexpected node type %T", node)
	}
}

// walk follows the path of key down from the node with the given root hash,
// until it reaches an empty subtree or a leaf. Sibling sums are derived from
// the sums of the branches and of the nodes on the path, so siblings are
// never read.
func walk(ctx context.Context, tx ReadOnlyTreeTX, h *Hasher, root NodeHash, key Key) (*path, error) {
	p := &path{}
	next := root
	for d := 0; ; d++ {
		var sum uint64
		var branch *BranchNode
		if next != h.HashEmpty(d) {
			node, err := getNode(ctx, tx, h, next, d)
			if err != nil {
				return nil, err
			}
			sum = node.NodeSum()
			switch n := node.(type) {
			case *BranchNode:
				branch = n
			case *CompactedLeafNode:
				// The hash of a compacted leaf only binds the key bits below d.
				if commonPrefixLen(n.Key, key) < d {
					return nil, corruptf(next, d, "leaf %s off the path of %s", n.Key, key)
				}
				p.leaf = n
			}
		}
		if d > 0 {
			parent, sib := p.branches[d-1], &p.siblings[d-1]
			if parent.Sum < sum {
				return nil, corruptf(parent.NodeHash(), d-1, "sum %d below child sum %d", parent.Sum, sum)
			}
			sib.Sum = parent.Sum - sum
			if sib.Sum != 0 && sib.Hash == h.HashEmpty(d) {
				return nil, corruptf(parent.NodeHash(), d-1, "empty child with sum %d", sib.Sum)
			}
		}
		if branch == nil {
			if klog.V(4).Enabled() {
				klog.Infof("mssmt: walk(%s) ended at depth %d, leaf: %v", key, d, p.leaf != nil)
			}
			return p, nil
		}
		child, sib := branch.Left, branch.Right
		if key.Bit(d) == 1 {
			child, sib = sib, child
		}
		p.branches = append(p.branches, branch)
		p.siblings = append(p.siblings, ComputedNode{Hash: sib})
		next = child
	}
}

// lookup returns the leaf stored at key, or nil if there is none.
func lookup(ctx context.Context, tx ReadOnlyTreeTX, h *Hasher, root NodeHash, key Key) (*LeafNode, error) {
	p, err := walk(ctx, tx, h, root, key)
	if err != nil {
		return nil, err
	}
	if p.leaf == nil || p.leaf.Key != key {
		return nil, nil
	}
	return p.leaf.LeafNode, nil
}

// emptySiblings returns the siblings of a path through an empty region, for
// the path nodes at depths from+1 through to.
func emptySiblings(h *Hasher, from, to int) []ComputedNode {
	sibs := make([]ComputedNode, 0, to-from)
	for d := from + 1; d <= to; d++ {
		sibs = append(sibs, ComputedNode{Hash: h.HashEmpty(d)})
	}
	return sibs
}
