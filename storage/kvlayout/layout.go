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

// Package kvlayout maps the nodes and roots of namespaced trees onto the
// keys and values of an ordered key-value store, and buffers the writes of a
// transaction until the store commits them.
package kvlayout

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"k8s.io/klog/v2"
)

// Key prefixes, one per table.
const (
	NodePrefix byte = 'n'
	RootPrefix byte = 'r'
)

// rootSize is the size of an encoded root: hash then big-endian sum.
const rootSize = mssmt.HashSize + 8

// namespaced returns prefix || uvarint(len(ns)) || ns. The length keeps one
// namespace from being a prefix of another's keys.
func namespaced(prefix byte, ns string, extra int) []byte {
	k := make([]byte, 0, 1+binary.MaxVarintLen64+len(ns)+extra)
	k = append(k, prefix)
	k = binary.AppendUvarint(k, uint64(len(ns)))
	return append(k, ns...)
}

// NodeKey returns the key of the node with the given hash in namespace ns.
func NodeKey(ns string, h mssmt.NodeHash) []byte {
	return append(namespaced(NodePrefix, ns, len(h)), h[:]...)
}

// RootKey returns the key of the root of namespace ns.
func RootKey(ns string) []byte {
	return namespaced(RootPrefix, ns, 0)
}

// IsRootKey returns whether k is a key returned by RootKey.
func IsRootKey(k []byte) bool {
	return len(k) > 0 && k[0] == RootPrefix
}

// MarshalRoot encodes a root.
func MarshalRoot(r *mssmt.Root) []byte {
	b := make([]byte, rootSize)
	copy(b, r.Hash[:])
	binary.BigEndian.PutUint64(b[mssmt.HashSize:], r.Sum)
	return b
}

// UnmarshalRoot decodes a root encoded by MarshalRoot.
func UnmarshalRoot(b []byte) (*mssmt.Root, error) {
	if len(b) != rootSize {
		return nil, fmt.Errorf("%w: root of %d bytes, want %d", mssmt.ErrMalformed, len(b), rootSize)
	}
	r := &mssmt.Root{Sum: binary.BigEndian.Uint64(b[mssmt.HashSize:])}
	copy(r.Hash[:], b)
	return r, nil
}

// Getter reads from the store. Get returns a nil value for an absent key. The
// returned value may be retained by the caller.
type Getter interface {
	Get(key []byte) ([]byte, error)
}

// GetterFunc adapts a function to a Getter.
type GetterFunc func(key []byte) ([]byte, error)

// Get implements Getter.
func (f GetterFunc) Get(key []byte) ([]byte, error) {
	return f(key)
}

// Write is a buffered write. A nil Value deletes the key.
type Write struct {
	Key   []byte
	Value []byte
}

// TX implements mssmt.TreeTX over a Getter. Writes are buffered, visible to
// the reads of the same TX, and handed to the store by Writes.
type TX struct {
	ns      string
	g       Getter
	pending map[string][]byte
}

// NewTX returns a TX on namespace ns reading from g.
func NewTX(ns string, g Getter) *TX {
	return &TX{ns: ns, g: g, pending: make(map[string][]byte)}
}

func (t *TX) get(key []byte) ([]byte, error) {
	if v, ok := t.pending[string(key)]; ok {
		return v, nil
	}
	return t.g.Get(key)
}

// GetNode implements mssmt.ReadOnlyTreeTX.
func (t *TX) GetNode(ctx context.Context, h mssmt.NodeHash) (mssmt.Node, error) {
	v, err := t.get(NodeKey(t.ns, h))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", mssmt.ErrNodeNotFound, h)
	}
	return mssmt.UnmarshalNode(h, v)
}

// GetRoot implements mssmt.ReadOnlyTreeTX.
func (t *TX) GetRoot(ctx context.Context) (*mssmt.Root, error) {
	v, err := t.get(RootKey(t.ns))
	if err != nil || v == nil {
		return nil, err
	}
	return UnmarshalRoot(v)
}

// PutNode implements mssmt.TreeTX.
func (t *TX) PutNode(ctx context.Context, n mssmt.Node) error {
	v, err := mssmt.MarshalNode(n)
	if err != nil {
		return err
	}
	h := n.NodeHash()
	if klog.V(4).Enabled() {
		klog.Infof("kvlayout: PutNode(%q, %s)", t.ns, h)
	}
	t.pending[string(NodeKey(t.ns, h))] = v
	return nil
}

// SetRoot implements mssmt.TreeTX.
func (t *TX) SetRoot(ctx context.Context, r *mssmt.Root) error {
	var v []byte
	if r != nil {
		v = MarshalRoot(r)
	}
	t.pending[string(RootKey(t.ns))] = v
	return nil
}

// Writes returns the buffered writes in key order.
func (t *TX) Writes() []Write {
	w := make([]Write, 0, len(t.pending))
	for k, v := range t.pending {
		w = append(w, Write{Key: []byte(k), Value: v})
	}
	sort.Slice(w, func(i, j int) bool { return string(w[i].Key) < string(w[j].Key) })
	return w
}
