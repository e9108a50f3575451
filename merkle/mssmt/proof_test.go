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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// twoLeafTree returns a tree with a leaf compacted to depth 1 on each side of
// the root, and the proofs of both leaves.
func twoLeafTree(t *testing.T) (Root, [2]*LeafNode, [2]*Proof) {
	t.Helper()
	h := DefaultHasher
	leaves := [2]*LeafNode{
		{Key: keyOf(0x10), Value: []byte("left"), Sum: 3},
		{Key: keyOf(0x90), Value: []byte("right"), Sum: 4},
	}
	l := NewCompactedLeafNode(h, 1, leaves[0])
	r := NewCompactedLeafNode(h, 1, leaves[1])
	root, err := NewBranchNode(h, l, r)
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	proofs := [2]*Proof{
		{Siblings: []ComputedNode{{Hash: r.NodeHash(), Sum: 4}}, Kind: TerminalCompacted, Leaf: leaves[0]},
		{Siblings: []ComputedNode{{Hash: l.NodeHash(), Sum: 3}}, Kind: TerminalCompacted, Leaf: leaves[1]},
	}
	return Root{Hash: root.NodeHash(), Sum: 7}, leaves, proofs
}

func TestVerifyInclusion(t *testing.T) {
	root, leaves, proofs := twoLeafTree(t)
	for i, leaf := range leaves {
		if !VerifyInclusion(root, leaf.Key, proofs[i], leaf.Value, leaf.Sum) {
			t.Errorf("VerifyInclusion(leaf %d)=false, want true", i)
		}
		if VerifyInclusion(root, leaf.Key, proofs[i], leaf.Value, leaf.Sum+1) {
			t.Errorf("VerifyInclusion(leaf %d, wrong sum)=true, want false", i)
		}
		if VerifyInclusion(root, leaf.Key, proofs[i], []byte("other"), leaf.Sum) {
			t.Errorf("VerifyInclusion(leaf %d, wrong value)=true, want false", i)
		}
		if VerifyNonInclusion(root, leaf.Key, proofs[i]) {
			t.Errorf("VerifyNonInclusion(leaf %d)=true, want false", i)
		}
	}
	got, err := proofs[0].Root(leaves[0].Key)
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if got != root {
		t.Errorf("Root()=%v, want %v", got, root)
	}
}

func TestVerifyNonInclusion(t *testing.T) {
	root, _, proofs := twoLeafTree(t)
	// Shares the first bit with the left leaf, so the left leaf's proof shows
	// it absent.
	absent := keyOf(0x20)
	if !VerifyNonInclusion(root, absent, proofs[0]) {
		t.Error("VerifyNonInclusion(absent)=false, want true")
	}
	if VerifyInclusion(root, absent, proofs[0], []byte("left"), 3) {
		t.Error("VerifyInclusion(absent)=true, want false")
	}
	// Off the path of the left leaf.
	if VerifyNonInclusion(root, keyOf(0xa0), proofs[0]) {
		t.Error("VerifyNonInclusion() with a proof of another path=true, want false")
	}
	if VerifyNonInclusion(root, absent, nil) || VerifyInclusion(root, absent, nil, nil, 0) {
		t.Error("nil proof verified")
	}
}

func TestVerifyEmptyTree(t *testing.T) {
	h := DefaultHasher
	root := Root{Hash: h.HashEmpty(0)}
	p := &Proof{Kind: TerminalEmpty}
	if !VerifyNonInclusion(root, keyOf(1), p) {
		t.Error("VerifyNonInclusion() in the empty tree=false, want true")
	}
	if VerifyInclusion(root, keyOf(1), p, nil, 0) {
		t.Error("VerifyInclusion() with an empty terminal=true, want false")
	}
}

func TestTamperedProofs(t *testing.T) {
	root, leaves, proofs := twoLeafTree(t)
	key := leaves[0].Key
	for _, tc := range []struct {
		desc   string
		modify func(p *Proof)
	}{
		{desc: "sibling-sum", modify: func(p *Proof) { p.Siblings[0].Sum++ }},
		{desc: "sibling-hash", modify: func(p *Proof) { p.Siblings[0].Hash[0] ^= 1 }},
		{desc: "extra-sibling", modify: func(p *Proof) {
			p.Siblings = append([]ComputedNode{{Hash: DefaultHasher.HashEmpty(2)}}, p.Siblings...)
		}},
		{desc: "kind", modify: func(p *Proof) { p.Kind = TerminalEmpty; p.Leaf = nil }},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			p := &Proof{Siblings: append([]ComputedNode{}, proofs[0].Siblings...), Kind: proofs[0].Kind, Leaf: proofs[0].Leaf}
			tc.modify(p)
			if VerifyInclusion(root, key, p, leaves[0].Value, leaves[0].Sum) {
				t.Error("VerifyInclusion() of a tampered proof=true, want false")
			}
		})
	}
}

// emptyProofSiblings returns the siblings of a proof of depth n through an
// empty region, in proof order.
func emptyProofSiblings(h *Hasher, n int) []ComputedNode {
	sibs := make([]ComputedNode, n)
	for i := range sibs {
		sibs[i] = ComputedNode{Hash: h.HashEmpty(n - i)}
	}
	return sibs
}

func TestInvalidTerminals(t *testing.T) {
	leaf := &LeafNode{Key: keyOf(0x10), Value: []byte("v"), Sum: 1}
	sibs := func(n int) []ComputedNode { return emptyProofSiblings(DefaultHasher, n) }
	for _, tc := range []struct {
		desc    string
		p       *Proof
		wantErr error
	}{
		{desc: "too-deep", p: &Proof{Siblings: make([]ComputedNode, MaxDepth+1)}, wantErr: ErrInvalidProof},
		{desc: "empty-with-leaf", p: &Proof{Kind: TerminalEmpty, Leaf: leaf, Siblings: sibs(1)}, wantErr: ErrInvalidProof},
		{desc: "unknown-kind", p: &Proof{Kind: TerminalKind(9), Leaf: leaf, Siblings: sibs(1)}, wantErr: ErrInvalidProof},
		{desc: "leaf-missing", p: &Proof{Kind: TerminalCompacted, Siblings: sibs(1)}, wantErr: ErrInvalidProof},
		{desc: "leaf-above-leaf-level", p: &Proof{Kind: TerminalLeaf, Leaf: leaf, Siblings: sibs(3)}, wantErr: ErrInvalidProof},
		{desc: "compacted-at-leaf-level", p: &Proof{Kind: TerminalCompacted, Leaf: leaf, Siblings: sibs(MaxDepth)}, wantErr: ErrInvalidProof},
		{desc: "compacted-at-root", p: &Proof{Kind: TerminalCompacted, Leaf: leaf}, wantErr: ErrInvalidProof},
		{desc: "sum-too-large", p: &Proof{Kind: TerminalCompacted, Leaf: &LeafNode{Key: leaf.Key, Sum: MaxSum + 1}, Siblings: sibs(1)}, wantErr: ErrInvalidSum},
		{desc: "off-path", p: &Proof{Kind: TerminalCompacted, Leaf: &LeafNode{Key: keyOf(0x80), Sum: 1}, Siblings: sibs(1)}, wantErr: ErrInvalidProof},
		{desc: "sum-overflow", p: &Proof{Kind: TerminalCompacted, Leaf: &LeafNode{Key: leaf.Key, Sum: MaxSum}, Siblings: []ComputedNode{{Sum: 1}}}, wantErr: ErrSumOverflow},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := tc.p.Root(keyOf(0x10))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Root()=%v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCompressProof(t *testing.T) {
	h := DefaultHasher
	leaf := &LeafNode{Key: keyOf(0x10), Value: []byte("v"), Sum: 2}
	sibs := emptyProofSiblings(h, 5)
	// Index 3 is at depth 2.
	sibs[3] = ComputedNode{Hash: NodeHash{9}, Sum: 5}
	p := &Proof{Siblings: sibs, Kind: TerminalCompacted, Leaf: leaf}

	c := p.Compress()
	if diff := cmp.Diff([]bool{true, true, true, false, true}, c.Empty); diff != "" {
		t.Errorf("Compress().Empty diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ComputedNode{{Hash: NodeHash{9}, Sum: 5}}, c.Siblings); diff != "" {
		t.Errorf("Compress().Siblings diff (-want +got):\n%s", diff)
	}
	got, err := c.Decompress()
	if err != nil {
		t.Fatalf("Decompress(): %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("Decompress() diff (-want +got):\n%s", diff)
	}

	for _, bad := range []*CompressedProof{
		{Empty: []bool{false, false}, Siblings: []ComputedNode{{}}},
		{Empty: []bool{true}, Siblings: []ComputedNode{{}}},
		{Empty: make([]bool, MaxDepth+1)},
	} {
		if _, err := bad.Decompress(); !errors.Is(err, ErrInvalidProof) {
			t.Errorf("Decompress(%+v)=%v, want ErrInvalidProof", bad, err)
		}
	}
}

func TestTerminalKindString(t *testing.T) {
	for k, want := range map[TerminalKind]string{
		TerminalEmpty:     "empty",
		TerminalLeaf:      "leaf",
		TerminalCompacted: "compacted",
		TerminalKind(7):   "TerminalKind(7)",
	} {
		if got := k.String(); got != want {
			t.Errorf("String()=%q, want %q", got, want)
		}
	}
}

func TestCustomHasherVerifier(t *testing.T) {
	h := SHA3Hasher
	leaf := &LeafNode{Key: keyOf(0x10), Value: []byte("v"), Sum: 2}
	l := NewCompactedLeafNode(h, 1, leaf)
	root, err := NewBranchNode(h, l, ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	p := &Proof{Siblings: []ComputedNode{{Hash: h.HashEmpty(1)}}, Kind: TerminalCompacted, Leaf: leaf}
	r := Root{Hash: root.NodeHash(), Sum: 2}
	if !NewVerifier(h).VerifyInclusion(r, leaf.Key, p, leaf.Value, leaf.Sum) {
		t.Error("VerifyInclusion() with the SHA3 verifier=false, want true")
	}
	if VerifyInclusion(r, leaf.Key, p, leaf.Value, leaf.Sum) {
		t.Error("VerifyInclusion() with the default verifier=true, want false")
	}
}
