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
	"crypto"
	_ "crypto/sha256" // Register SHA256.
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	_ "golang.org/x/crypto/sha3" // Register SHA3-256.
)

const (
	// HashSize is the size in bytes of node hashes and keys.
	HashSize = 32
	// MaxDepth is the depth of the leaf level, counted from the root at 0.
	MaxDepth = HashSize * 8
)

// NodeHash is the hash of a tree node.
type NodeHash [HashSize]byte

// String returns the hex encoding of the hash.
func (h NodeHash) String() string {
	return hex.EncodeToString(h[:])
}

var (
	// DefaultHasher is the SHA-256 based hasher.
	DefaultHasher = NewHasher(crypto.SHA256)
	// SHA3Hasher is the SHA3-256 based hasher.
	SHA3Hasher = NewHasher(crypto.SHA3_256)
)

// Hasher computes MS-SMT node hashes. It holds the precomputed hashes of
// empty subtrees at every depth.
type Hasher struct {
	crypto.Hash
	// empty[d] is the hash of an empty subtree rooted at depth d.
	empty [MaxDepth + 1]NodeHash
}

// NewHasher returns a Hasher based on the given hash function, which must be
// linked into the binary and produce HashSize-byte digests.
func NewHasher(h crypto.Hash) *Hasher {
	if !h.Available() {
		panic(fmt.Sprintf("NewHasher: hash function %v is not available", h))
	}
	if size := h.Size(); size != HashSize {
		panic(fmt.Sprintf("NewHasher: digest size %d, want %d", size, HashSize))
	}
	hr := &Hasher{Hash: h}
	hr.empty[MaxDepth] = hr.sum(hr.New(), 0)
	for d := MaxDepth - 1; d >= 0; d-- {
		hr.empty[d] = hr.HashBranch(hr.empty[d+1], hr.empty[d+1], 0)
	}
	return hr
}

// HashLeaf returns the hash of a leaf: H(key || value || sum).
func (hr *Hasher) HashLeaf(key Key, value []byte, sum uint64) NodeHash {
	h := hr.New()
	h.Write(key[:])
	h.Write(value)
	return hr.sum(h, sum)
}

// HashBranch returns the hash of a branch node with the given children:
// H(left || right || sum), where sum is the sum of both children.
func (hr *Hasher) HashBranch(left, right NodeHash, sum uint64) NodeHash {
	h := hr.New()
	h.Write(left[:])
	h.Write(right[:])
	return hr.sum(h, sum)
}

// HashEmpty returns the hash of an empty subtree rooted at the given depth.
func (hr *Hasher) HashEmpty(depth int) NodeHash {
	return hr.empty[depth]
}

// HashCompacted returns the hash that a chain of single-child branches from
// the leaf level up to the given depth would have, with the leaf at the
// bottom and empty subtrees as the other children.
func (hr *Hasher) HashCompacted(key Key, value []byte, sum uint64, depth int) NodeHash {
	return hr.foldEmpty(key, hr.HashLeaf(key, value, sum), sum, MaxDepth, depth)
}

// foldEmpty lifts the hash of the node on the key's path at depth from up to
// depth to, pairing it with empty siblings on the way.
func (hr *Hasher) foldEmpty(key Key, nh NodeHash, sum uint64, from, to int) NodeHash {
	for d := from; d > to; d-- {
		if key.Bit(d-1) == 0 {
			nh = hr.HashBranch(nh, hr.empty[d], sum)
		} else {
			nh = hr.HashBranch(hr.empty[d], nh, sum)
		}
	}
	return nh
}

func (hr *Hasher) sum(h hash.Hash, sum uint64) NodeHash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	h.Write(buf[:])
	var out NodeHash
	h.Sum(out[:0])
	return out
}
