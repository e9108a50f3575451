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
	"errors"
	"fmt"
)

// ErrInvalidProof is returned for a proof that is malformed for the key it is
// checked against.
var ErrInvalidProof = errors.New("mssmt: invalid proof")

// TerminalKind is the kind of node ending the path of a proof.
type TerminalKind uint8

const (
	// TerminalEmpty is an empty subtree.
	TerminalEmpty TerminalKind = iota
	// TerminalLeaf is a leaf at the leaf level.
	TerminalLeaf
	// TerminalCompacted is a leaf compacted to the depth of the terminal.
	TerminalCompacted
)

func (k TerminalKind) String() string {
	switch k {
	case TerminalEmpty:
		return "empty"
	case TerminalLeaf:
		return "leaf"
	case TerminalCompacted:
		return "compacted"
	}
	return fmt.Sprintf("TerminalKind(%d)", uint8(k))
}

// Proof is a Merkle-sum proof for one key. It proves either the leaf stored at
// the key, or that the key is absent.
type Proof struct {
	// Siblings are the siblings of the nodes on the path, from the terminal
	// up to the root. Siblings[i] is at depth len(Siblings)-i.
	Siblings []ComputedNode
	// Kind is the kind of the terminal node, at depth len(Siblings).
	Kind TerminalKind
	// Leaf is the terminal leaf, nil for TerminalEmpty. Its key may differ
	// from the queried key, which proves that the queried key is absent.
	Leaf *LeafNode
}

// Depth returns the depth of the terminal node.
func (p *Proof) Depth() int {
	return len(p.Siblings)
}

// Verifier checks proofs of trees built with a given Hasher.
type Verifier struct {
	h *Hasher
}

// NewVerifier returns a Verifier for trees built with the given hasher.
func NewVerifier(h *Hasher) *Verifier {
	return &Verifier{h: h}
}

var defaultVerifier = NewVerifier(DefaultHasher)

// terminal returns the node at the bottom of the proof's path.
func (v *Verifier) terminal(p *Proof, key Key) (Node, error) {
	d := p.Depth()
	if d > MaxDepth {
		return nil, fmt.Errorf("%w: %d siblings", ErrInvalidProof, d)
	}
	if p.Kind == TerminalEmpty {
		if p.Leaf != nil {
			return nil, fmt.Errorf("%w: leaf in an empty terminal", ErrInvalidProof)
		}
		return ComputedNode{Hash: v.h.HashEmpty(d)}, nil
	}
	switch {
	case p.Kind != TerminalLeaf && p.Kind != TerminalCompacted:
		return nil, fmt.Errorf("%w: terminal %v", ErrInvalidProof, p.Kind)
	case p.Leaf == nil:
		return nil, fmt.Errorf("%w: %v terminal without a leaf", ErrInvalidProof, p.Kind)
	case (p.Kind == TerminalLeaf) != (d == MaxDepth), d == 0:
		return nil, fmt.Errorf("%w: %v terminal at depth %d", ErrInvalidProof, p.Kind, d)
	case p.Leaf.Sum > MaxSum:
		return nil, fmt.Errorf("%w: leaf sum %d", ErrInvalidSum, p.Leaf.Sum)
	case commonPrefixLen(p.Leaf.Key, key) < d:
		return nil, fmt.Errorf("%w: leaf %s off the path of %s", ErrInvalidProof, p.Leaf.Key, key)
	}
	return NewCompactedLeafNode(v.h, d, p.Leaf), nil
}

// Root returns the root that the proof commits to for the given key.
func (v *Verifier) Root(p *Proof, key Key) (Root, error) {
	node, err := v.terminal(p, key)
	if err != nil {
		return Root{}, err
	}
	nh, sum := node.NodeHash(), node.NodeSum()
	d := p.Depth()
	for i, sib := range p.Siblings {
		depth := d - i - 1
		if sum, err = addSums(sum, sib.Sum); err != nil {
			return Root{}, err
		}
		if key.Bit(depth) == 0 {
			nh = v.h.HashBranch(nh, sib.Hash, sum)
		} else {
			nh = v.h.HashBranch(sib.Hash, nh, sum)
		}
	}
	return Root{Hash: nh, Sum: sum}, nil
}

// VerifyInclusion returns whether the proof shows that the tree with the
// given root holds the given value and sum at key.
func (v *Verifier) VerifyInclusion(root Root, key Key, p *Proof, value []byte, sum uint64) bool {
	if p == nil || p.Kind == TerminalEmpty || p.Leaf == nil {
		return false
	}
	if !p.Leaf.Equal(&LeafNode{Key: key, Value: value, Sum: sum}) {
		return false
	}
	got, err := v.Root(p, key)
	return err == nil && got == root
}

// VerifyNonInclusion returns whether the proof shows that the tree with the
// given root holds nothing at key.
func (v *Verifier) VerifyNonInclusion(root Root, key Key, p *Proof) bool {
	if p == nil || (p.Leaf != nil && p.Leaf.Key == key) {
		return false
	}
	got, err := v.Root(p, key)
	return err == nil && got == root
}

// Root returns the root that the proof commits to for the given key, for
// trees built with DefaultHasher.
func (p *Proof) Root(key Key) (Root, error) {
	return defaultVerifier.Root(p, key)
}

// VerifyInclusion is Verifier.VerifyInclusion for trees built with
// DefaultHasher.
func VerifyInclusion(root Root, key Key, p *Proof, value []byte, sum uint64) bool {
	return defaultVerifier.VerifyInclusion(root, key, p, value, sum)
}

// VerifyNonInclusion is Verifier.VerifyNonInclusion for trees built with
// DefaultHasher.
func VerifyNonInclusion(root Root, key Key, p *Proof) bool {
	return defaultVerifier.VerifyNonInclusion(root, key, p)
}

// CompressedProof is a Proof with the empty siblings left out.
type CompressedProof struct {
	// Empty[i] tells whether the i-th sibling of the proof is the empty
	// subtree at its depth.
	Empty []bool
	// Siblings are the non-empty siblings, in proof order.
	Siblings []ComputedNode
	Kind     TerminalKind
	Leaf     *LeafNode
}

// Compress returns the proof with its empty siblings left out.
func (v *Verifier) Compress(p *Proof) *CompressedProof {
	c := &CompressedProof{Empty: make([]bool, len(p.Siblings)), Kind: p.Kind, Leaf: p.Leaf}
	d := p.Depth()
	for i, sib := range p.Siblings {
		if sib.Sum == 0 && sib.Hash == v.h.HashEmpty(d-i) {
			c.Empty[i] = true
			continue
		}
		c.Siblings = append(c.Siblings, sib)
	}
	return c
}

// Decompress restores the proof that c was compressed from.
func (v *Verifier) Decompress(c *CompressedProof) (*Proof, error) {
	d := len(c.Empty)
	if d > MaxDepth {
		return nil, fmt.Errorf("%w: %d siblings", ErrInvalidProof, d)
	}
	p := &Proof{Siblings: make([]ComputedNode, d), Kind: c.Kind, Leaf: c.Leaf}
	next := 0
	for i, empty := range c.Empty {
		if empty {
			p.Siblings[i] = ComputedNode{Hash: v.h.HashEmpty(d - i)}
			continue
		}
		if next == len(c.Siblings) {
			return nil, fmt.Errorf("%w: %d non-empty siblings, want more", ErrInvalidProof, len(c.Siblings))
		}
		p.Siblings[i] = c.Siblings[next]
		next++
	}
	if next != len(c.Siblings) {
		return nil, fmt.Errorf("%w: %d non-empty siblings, want %d", ErrInvalidProof, len(c.Siblings), next)
	}
	return p, nil
}

// Compress returns the proof with its empty siblings left out, for trees
// built with DefaultHasher.
func (p *Proof) Compress() *CompressedProof {
	return defaultVerifier.Compress(p)
}

// Decompress restores the proof that c was compressed from, for trees built
// with DefaultHasher.
func (c *CompressedProof) Decompress() (*Proof, error) {
	return defaultVerifier.Decompress(c)
}
