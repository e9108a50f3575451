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

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when decoding bytes that are not a valid encoding.
var ErrMalformed = errors.New("mssmt: malformed encoding")

// Field numbers of the proof encoding.
const (
	proofSibling protowire.Number = 1
	proofKind    protowire.Number = 2
	proofKey     protowire.Number = 3
	proofValue   protowire.Number = 4
	proofSum     protowire.Number = 5
	proofEmpty   protowire.Number = 6
	proofCount   protowire.Number = 7

	siblingHash protowire.Number = 1
	siblingSum  protowire.Number = 2
)

// Field numbers of the node record encoding.
const (
	nodeKind  protowire.Number = 1
	nodeLeft  protowire.Number = 2
	nodeRight protowire.Number = 3
	nodeKey   protowire.Number = 4
	nodeValue protowire.Number = 5
	nodeSum   protowire.Number = 6

	kindBranch = 1
	kindLeaf   = 2
)

// field is a decoded protobuf field. Only varint and length-delimited fields
// are used by the encodings.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// parseFields splits a protobuf message into its fields. Fields of other wire
// types are skipped.
func parseFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
		if typ == protowire.VarintType || typ == protowire.BytesType {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, f.num, f.typ)
	}
	return nil
}

// hash returns the field as a NodeHash.
func (f field) hash() (NodeHash, error) {
	var h NodeHash
	if err := f.want(protowire.BytesType); err != nil {
		return h, err
	}
	if len(f.bytes) != HashSize {
		return h, fmt.Errorf("%w: field %d has %d bytes, want %d", ErrMalformed, f.num, len(f.bytes), HashSize)
	}
	copy(h[:], f.bytes)
	return h, nil
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSibling(b []byte, sib *ComputedNode) []byte {
	var msg []byte
	if sib != nil {
		msg = appendBytesField(msg, siblingHash, sib.Hash[:])
		msg = appendVarintField(msg, siblingSum, sib.Sum)
	}
	return appendBytesField(b, proofSibling, msg)
}

func parseSibling(b []byte) (*ComputedNode, error) {
	fields, err := parseFields(b)
	if err != nil || len(fields) == 0 {
		return nil, err
	}
	sib := &ComputedNode{}
	for _, f := range fields {
		switch f.num {
		case siblingHash:
			if sib.Hash, err = f.hash(); err != nil {
				return nil, err
			}
		case siblingSum:
			if err := f.want(protowire.VarintType); err != nil {
				return nil, err
			}
			sib.Sum = f.varint
		}
	}
	return sib, nil
}

func appendTerminal(b []byte, kind TerminalKind, leaf *LeafNode) []byte {
	b = appendVarintField(b, proofKind, uint64(kind))
	if leaf != nil {
		b = appendBytesField(b, proofKey, leaf.Key[:])
		b = appendBytesField(b, proofValue, leaf.Value)
		b = appendVarintField(b, proofSum, leaf.Sum)
	}
	return b
}

// terminalDecoder accumulates the terminal fields of a proof.
type terminalDecoder struct {
	kind TerminalKind
	leaf *LeafNode
}

func (t *terminalDecoder) leafNode() *LeafNode {
	if t.leaf == nil {
		t.leaf = &LeafNode{}
	}
	return t.leaf
}

// decode consumes f if it is a terminal field, and reports whether it was.
func (t *terminalDecoder) decode(f field) (bool, error) {
	switch f.num {
	case proofKind:
		if err := f.want(protowire.VarintType); err != nil {
			return true, err
		}
		if f.varint > uint64(TerminalCompacted) {
			return true, fmt.Errorf("%w: terminal kind %d", ErrMalformed, f.varint)
		}
		t.kind = TerminalKind(f.varint)
	case proofKey:
		h, err := f.hash()
		if err != nil {
			return true, err
		}
		t.leafNode().Key = Key(h)
	case proofValue:
		if err := f.want(protowire.BytesType); err != nil {
			return true, err
		}
		t.leafNode().Value = append([]byte{}, f.bytes...)
	case proofSum:
		if err := f.want(protowire.VarintType); err != nil {
			return true, err
		}
		t.leafNode().Sum = f.varint
	default:
		return false, nil
	}
	return true, nil
}

// MarshalProof encodes the proof. Empty siblings are encoded as empty
// messages.
func (v *Verifier) MarshalProof(p *Proof) []byte {
	var b []byte
	d := p.Depth()
	for i := range p.Siblings {
		sib := &p.Siblings[i]
		if sib.Sum == 0 && sib.Hash == v.h.HashEmpty(d-i) {
			sib = nil
		}
		b = appendSibling(b, sib)
	}
	return appendTerminal(b, p.Kind, p.Leaf)
}

// UnmarshalProof decodes a proof encoded by MarshalProof.
func (v *Verifier) UnmarshalProof(b []byte) (*Proof, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	var sibs []*ComputedNode
	var t terminalDecoder
	for _, f := range fields {
		if ok, err := t.decode(f); ok {
			if err != nil {
				return nil, err
			}
			continue
		}
		if f.num == proofSibling {
			if err := f.want(protowire.BytesType); err != nil {
				return nil, err
			}
			sib, err := parseSibling(f.bytes)
			if err != nil {
				return nil, err
			}
			sibs = append(sibs, sib)
		}
	}
	if len(sibs) > MaxDepth {
		return nil, fmt.Errorf("%w: %d siblings", ErrMalformed, len(sibs))
	}
	p := &Proof{Siblings: make([]ComputedNode, len(sibs)), Kind: t.kind, Leaf: t.leaf}
	for i, sib := range sibs {
		if sib == nil {
			p.Siblings[i] = ComputedNode{Hash: v.h.HashEmpty(len(sibs) - i)}
			continue
		}
		p.Siblings[i] = *sib
	}
	return p, nil
}

// MarshalBinary implements encoding.BinaryMarshaler for proofs of trees built
// with DefaultHasher.
func (p *Proof) MarshalBinary() ([]byte, error) {
	return defaultVerifier.MarshalProof(p), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for proofs of trees
// built with DefaultHasher.
func (p *Proof) UnmarshalBinary(b []byte) error {
	got, err := defaultVerifier.UnmarshalProof(b)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The encoding holds the
// non-empty siblings, followed by a bitmap of the empty ones and the total
// number of siblings.
func (c *CompressedProof) MarshalBinary() ([]byte, error) {
	var b []byte
	for i := range c.Siblings {
		b = appendSibling(b, &c.Siblings[i])
	}
	b = appendTerminal(b, c.Kind, c.Leaf)
	bitmap := make([]byte, (len(c.Empty)+7)/8)
	for i, empty := range c.Empty {
		if empty {
			bitmap[i/8] |= 0x80 >> (uint(i) % 8)
		}
	}
	b = appendBytesField(b, proofEmpty, bitmap)
	return appendVarintField(b, proofCount, uint64(len(c.Empty))), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *CompressedProof) UnmarshalBinary(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	var got CompressedProof
	var t terminalDecoder
	var bitmap []byte
	var count uint64
	for _, f := range fields {
		if ok, err := t.decode(f); ok {
			if err != nil {
				return err
			}
			continue
		}
		switch f.num {
		case proofSibling:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			sib, err := parseSibling(f.bytes)
			if err != nil {
				return err
			}
			if sib == nil {
				return fmt.Errorf("%w: empty sibling in a compressed proof", ErrMalformed)
			}
			got.Siblings = append(got.Siblings, *sib)
		case proofEmpty:
			if err := f.want(protowire.BytesType); err != nil {
				return err
			}
			bitmap = f.bytes
		case proofCount:
			if err := f.want(protowire.VarintType); err != nil {
				return err
			}
			count = f.varint
		}
	}
	if count > MaxDepth || uint64(len(bitmap)) != (count+7)/8 {
		return fmt.Errorf("%w: %d siblings with a %d byte bitmap", ErrMalformed, count, len(bitmap))
	}
	got.Empty = make([]bool, count)
	for i := range got.Empty {
		got.Empty[i] = bitmap[i/8]&(0x80>>(uint(i)%8)) != 0
	}
	got.Kind, got.Leaf = t.kind, t.leaf
	*c = got
	return nil
}

// MarshalNode encodes a node for storage: a branch as its child hashes and
// sum, a leaf as its key, value and sum.
func MarshalNode(n Node) ([]byte, error) {
	switch n := n.(type) {
	case *BranchNode:
		b := appendVarintField(nil, nodeKind, kindBranch)
		b = appendBytesField(b, nodeLeft, n.Left[:])
		b = appendBytesField(b, nodeRight, n.Right[:])
		return appendVarintField(b, nodeSum, n.Sum), nil
	case *CompactedLeafNode:
		b := appendVarintField(nil, nodeKind, kindLeaf)
		b = appendBytesField(b, nodeKey, n.Key[:])
		b = appendBytesField(b, nodeValue, n.Value)
		return appendVarintField(b, nodeSum, n.Sum), nil
	}
	return nil, fmt.Errorf("MarshalNode: unsupported node type %T", n)
}

// UnmarshalNode decodes a node encoded by MarshalNode, which was stored under
// the given hash.
func UnmarshalNode(hash NodeHash, b []byte) (Node, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	var kind uint64
	var left, right, key NodeHash
	var value []byte
	var sum uint64
	for _, f := range fields {
		switch f.num {
		case nodeKind, nodeSum:
			if err := f.want(protowire.VarintType); err != nil {
				return nil, err
			}
			if f.num == nodeKind {
				kind = f.varint
			} else {
				sum = f.varint
			}
		case nodeLeft:
			left, err = f.hash()
		case nodeRight:
			right, err = f.hash()
		case nodeKey:
			key, err = f.hash()
		case nodeValue:
			if err = f.want(protowire.BytesType); err == nil {
				value = append([]byte{}, f.bytes...)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	switch kind {
	case kindBranch:
		return NewStoredBranch(hash, left, right, sum), nil
	case kindLeaf:
		return NewStoredLeaf(hash, &LeafNode{Key: Key(key), Value: value, Sum: sum}), nil
	}
	return nil, fmt.Errorf("%w: node kind %d", ErrMalformed, kind)
}
