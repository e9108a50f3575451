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

// Package memory provides a TreeStorage keeping every namespace in a B-tree
// in memory. Transactions work on copy-on-write clones of the B-tree.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/btree"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/kvlayout"
	"k8s.io/klog/v2"
)

const degree = 8

// kv is a simple key->value type which implements btree's Item interface.
// The value is a mssmt.Node or a mssmt.Root.
type kv struct {
	k string
	v interface{}
}

// Less than by k's string key.
func (a kv) Less(b btree.Item) bool {
	return strings.Compare(a.k, b.(*kv).k) < 0
}

func nodeKey(ns string, h mssmt.NodeHash) *kv {
	return &kv{k: string(kvlayout.NodeKey(ns, h))}
}

func rootKey(ns string) *kv {
	return &kv{k: string(kvlayout.RootKey(ns))}
}

// TreeStorage is an in-memory mssmt.TreeStorage.
type TreeStorage struct {
	// writeMu serializes the read-write transactions.
	writeMu sync.Mutex
	// mu guards store. Cloning writes to the cloned tree, so it takes mu
	// exclusively.
	mu    sync.Mutex
	store *btree.BTree
}

// NewTreeStorage returns a new, empty, in-memory tree storage.
func NewTreeStorage() *TreeStorage {
	return &TreeStorage{store: btree.New(degree)}
}

func (m *TreeStorage) snapshot() *btree.BTree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Clone()
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (m *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f(ctx, &treeTX{ns: ns, tx: m.snapshot()})
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (m *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &treeTX{ns: ns, tx: m.snapshot()}
	if err := f(ctx, tx); err != nil {
		klog.V(2).Infof("memory: transaction on %q rolled back: %v", ns, err)
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = tx.tx
	klog.V(3).Infof("memory: committed %d writes to %q", tx.writes, ns)
	return nil
}

type treeTX struct {
	ns     string
	tx     *btree.BTree
	writes int
}

// copyLeaf returns a copy of the leaf that does not share its value.
func copyLeaf(l *mssmt.LeafNode) *mssmt.LeafNode {
	return &mssmt.LeafNode{Key: l.Key, Value: append([]byte{}, l.Value...), Sum: l.Sum}
}

func (t *treeTX) GetNode(ctx context.Context, h mssmt.NodeHash) (mssmt.Node, error) {
	item := t.tx.Get(nodeKey(t.ns, h))
	if item == nil {
		return nil, fmt.Errorf("%w: %s", mssmt.ErrNodeNotFound, h)
	}
	switch n := item.(*kv).v.(type) {
	case *mssmt.BranchNode:
		return mssmt.NewStoredBranch(h, n.Left, n.Right, n.Sum), nil
	case *mssmt.LeafNode:
		return mssmt.NewStoredLeaf(h, copyLeaf(n)), nil
	default:
		return nil, fmt.Errorf("memory: unexpected %T under node key %s", n, h)
	}
}

func (t *treeTX) GetRoot(ctx context.Context) (*mssmt.Root, error) {
	item := t.tx.Get(rootKey(t.ns))
	if item == nil {
		return nil, nil
	}
	r := item.(*kv).v.(mssmt.Root)
	return &r, nil
}

func (t *treeTX) PutNode(ctx context.Context, n mssmt.Node) error {
	k := nodeKey(t.ns, n.NodeHash())
	switch n := n.(type) {
	case *mssmt.BranchNode:
		k.v = mssmt.NewStoredBranch(n.NodeHash(), n.Left, n.Right, n.Sum)
	case *mssmt.CompactedLeafNode:
		k.v = copyLeaf(n.LeafNode)
	default:
		return fmt.Errorf("memory: cannot store node of type %T", n)
	}
	t.tx.ReplaceOrInsert(k)
	t.writes++
	return nil
}

func (t *treeTX) SetRoot(ctx context.Context, r *mssmt.Root) error {
	t.writes++
	if r == nil {
		t.tx.Delete(rootKey(t.ns))
		return nil
	}
	k := rootKey(t.ns)
	k.v = *r
	t.tx.ReplaceOrInsert(k)
	return nil
}
