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
)

// writer applies single-key mutations to a tree, writing the new nodes
// through a TreeTX. The root is not updated by the writer.
type writer interface {
	// insert places the leaf into the tree with the given root, and returns
	// the new root.
	insert(ctx context.Context, tx TreeTX, root NodeHash, leaf *LeafNode) (Root, error)
	// delete removes the leaf at key from the tree with the given root, and
	// returns the new root. Returns the same root if the key is absent.
	delete(ctx context.Context, tx TreeTX, root NodeHash, key Key) (Root, error)
}

// nodeWriter holds what the full and compacted writers have in common.
type nodeWriter struct {
	h *Hasher
}

// empty returns the empty subtree at the given depth.
func (w nodeWriter) empty(depth int) ComputedNode {
	return ComputedNode{Hash: w.h.HashEmpty(depth)}
}

// isEmpty returns whether the node is the empty subtree at the given depth.
func (w nodeWriter) isEmpty(n Node, depth int) bool {
	return n.NodeHash() == w.h.HashEmpty(depth)
}

// put writes the node, unless it is an empty subtree or a plain summary.
func (w nodeWriter) put(ctx context.Context, tx TreeTX, n Node) error {
	switch n.(type) {
	case *BranchNode, *CompactedLeafNode:
		return storeError("PutNode", tx.PutNode(ctx, n))
	}
	return nil
}

// branch writes and returns the branch at the given depth that has node on
// the key's side and sib on the other. Two empty children make an empty
// subtree, which is not written.
func (w nodeWriter) branch(ctx context.Context, tx TreeTX, key Key, depth int, node, sib Node) (Node, error) {
	if w.isEmpty(node, depth+1) && w.isEmpty(sib, depth+1) {
		return w.empty(depth), nil
	}
	left, right := node, sib
	if key.Bit(depth) == 1 {
		left, right = right, left
	}
	b, err := NewBranchNode(w.h, left, right)
	if err != nil {
		return nil, err
	}
	if err := w.put(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// fold recomputes the path of key bottom-up, starting from node located at
// depth top+len(siblings), and returns the node at depth top. siblings[i] is
// the sibling at depth top+i+1.
func (w nodeWriter) fold(ctx context.Context, tx TreeTX, key Key, top int, node Node, siblings []ComputedNode) (Node, error) {
	for i := len(siblings) - 1; i >= 0; i-- {
		var err error
		if node, err = w.branch(ctx, tx, key, top+i, node, siblings[i]); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// rootOf returns the Root of a tree whose top node is n.
func rootOf(n Node) Root {
	return Root{Hash: n.NodeHash(), Sum: n.NodeSum()}
}

// fullWriter materialises every branch from the root down to the leaf level.
type fullWriter struct {
	nodeWriter
}

func (w fullWriter) insert(ctx context.Context, tx TreeTX, root NodeHash, leaf *LeafNode) (Root, error) {
	p, err := walk(ctx, tx, w.h, root, leaf.Key)
	if err != nil {
		return Root{}, err
	}
	d := p.depth()
	siblings := p.siblings
	switch old := p.leaf; {
	case old == nil, old.Key == leaf.Key:
		siblings = append(siblings, emptySiblings(w.h, d, MaxDepth)...)
	case d == MaxDepth:
		return Root{}, corruptf(old.NodeHash(), d, "leaf %s on the path of %s", old.Key, leaf.Key)
	default:
		// A compacted leaf shares the path down to where the keys diverge. It
		// is expanded into the sibling subtree at that point.
		split := commonPrefixLen(old.Key, leaf.Key)
		sub, err := w.materialize(ctx, tx, old.LeafNode, split+1)
		if err != nil {
			return Root{}, err
		}
		siblings = append(siblings, emptySiblings(w.h, d, split)...)
		siblings = append(siblings, ComputedNode{Hash: sub.NodeHash(), Sum: sub.NodeSum()})
		siblings = append(siblings, emptySiblings(w.h, split+1, MaxDepth)...)
	}
	node := NewCompactedLeafNode(w.h, MaxDepth, leaf)
	if err := w.put(ctx, tx, node); err != nil {
		return Root{}, err
	}
	top, err := w.fold(ctx, tx, leaf.Key, 0, node, siblings)
	if err != nil {
		return Root{}, err
	}
	return rootOf(top), nil
}

// materialize writes the leaf at the leaf level and the chain of branches
// above it up to the given depth, and returns the node at that depth.
func (w fullWriter) materialize(ctx context.Context, tx TreeTX, leaf *LeafNode, depth int) (Node, error) {
	node := NewCompactedLeafNode(w.h, MaxDepth, leaf)
	if err := w.put(ctx, tx, node); err != nil {
		return nil, err
	}
	return w.fold(ctx, tx, leaf.Key, depth, node, emptySiblings(w.h, depth, MaxDepth))
}

func (w fullWriter) delete(ctx context.Context, tx TreeTX, root NodeHash, key Key) (Root, error) {
	p, err := walk(ctx, tx, w.h, root, key)
	if err != nil {
		return Root{}, err
	}
	if p.leaf == nil || p.leaf.Key != key {
		return Root{Hash: root, Sum: sumOf(p)}, nil
	}
	top, err := w.fold(ctx, tx, key, 0, w.empty(p.depth()), p.siblings)
	if err != nil {
		return Root{}, err
	}
	return rootOf(top), nil
}

// compactedWriter keeps every leaf compacted to the shallowest depth at which
// it is alone in its subtree. The root is never compacted.
type compactedWriter struct {
	nodeWriter
}

func (w compactedWriter) insert(ctx context.Context, tx TreeTX, root NodeHash, leaf *LeafNode) (Root, error) {
	p, err := walk(ctx, tx, w.h, root, leaf.Key)
	if err != nil {
		return Root{}, err
	}
	d, siblings := p.depth(), p.siblings
	if d == 0 {
		// The tree is empty. Place the leaf under a new root branch.
		d, siblings = 1, []ComputedNode{w.empty(1)}
	}
	var node Node
	switch old := p.leaf; {
	case old == nil, old.Key == leaf.Key:
		node = NewCompactedLeafNode(w.h, d, leaf)
		if err := w.put(ctx, tx, node); err != nil {
			return Root{}, err
		}
	default:
		if node, err = w.split(ctx, tx, d, leaf, old.LeafNode); err != nil {
			return Root{}, err
		}
	}
	top, err := w.fold(ctx, tx, leaf.Key, 0, node, siblings)
	if err != nil {
		return Root{}, err
	}
	return rootOf(top), nil
}

// split replaces a compacted leaf at the given depth with the subtree holding
// both it and the new leaf. The two leaves are compacted to just below the
// branch where their keys diverge.
func (w compactedWriter) split(ctx context.Context, tx TreeTX, depth int, leaf, old *LeafNode) (Node, error) {
	at := commonPrefixLen(leaf.Key, old.Key)
	node := NewCompactedLeafNode(w.h, at+1, leaf)
	sib := NewCompactedLeafNode(w.h, at+1, old)
	for _, n := range []Node{node, sib} {
		if err := w.put(ctx, tx, n); err != nil {
			return nil, err
		}
	}
	b, err := w.branch(ctx, tx, leaf.Key, at, node, sib)
	if err != nil {
		return nil, err
	}
	return w.fold(ctx, tx, leaf.Key, depth, b, emptySiblings(w.h, depth, at))
}

func (w compactedWriter) delete(ctx context.Context, tx TreeTX, root NodeHash, key Key) (Root, error) {
	p, err := walk(ctx, tx, w.h, root, key)
	if err != nil {
		return Root{}, err
	}
	if p.leaf == nil || p.leaf.Key != key {
		return Root{Hash: root, Sum: sumOf(p)}, nil
	}
	var node Node = w.empty(p.depth())
	for d := p.depth() - 1; d >= 0; d-- {
		sib := Node(p.siblings[d])
		if d > 0 {
			// A leaf left alone in the subtree of the branch at depth d moves up
			// to replace the branch.
			var lone *LeafNode
			switch n := node.(type) {
			case *CompactedLeafNode:
				if w.isEmpty(sib, d+1) {
					lone = n.LeafNode
				}
			default:
				if w.isEmpty(node, d+1) && !w.isEmpty(sib, d+1) {
					s, err := getNode(ctx, tx, w.h, sib.NodeHash(), d+1)
					if err != nil {
						return Root{}, err
					}
					if l, ok := s.(*CompactedLeafNode); ok {
						if commonPrefixLen(l.Key, key) != d {
							return Root{}, corruptf(l.NodeHash(), d+1, "leaf %s off the path of its sibling %s", l.Key, key)
						}
						lone = l.LeafNode
					}
				}
			}
			if lone != nil {
				node = NewCompactedLeafNode(w.h, d, lone)
				continue
			}
		}
		// A leaf moving up is written once it comes to rest.
		if _, ok := node.(*CompactedLeafNode); ok {
			if err := w.put(ctx, tx, node); err != nil {
				return Root{}, err
			}
		}
		if node, err = w.branch(ctx, tx, key, d, node, sib); err != nil {
			return Root{}, err
		}
	}
	return rootOf(node), nil
}

// sumOf returns the sum of the tree that the walk started from.
func sumOf(p *path) uint64 {
	if len(p.branches) != 0 {
		return p.branches[0].Sum
	}
	if p.leaf != nil {
		return p.leaf.Sum
	}
	return 0
}
