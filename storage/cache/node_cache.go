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

// Package cache provides a read-through cache of tree nodes in front of a
// TreeStorage. Nodes are content addressed and never change, so cached nodes
// need no invalidation.
package cache

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"k8s.io/klog/v2"
)

// DefaultSize is the number of nodes cached by default.
const DefaultSize = 1 << 16

var (
	once        sync.Once
	cacheHits   monitoring.Counter
	cacheMisses monitoring.Counter
	cacheFills  monitoring.Counter
)

func createMetrics(mf monitoring.MetricFactory) {
	cacheHits = mf.NewCounter("mssmt_node_cache_hits", "Number of nodes read from the cache")
	cacheMisses = mf.NewCounter("mssmt_node_cache_misses", "Number of nodes read through to the storage")
	cacheFills = mf.NewCounter("mssmt_node_cache_fills", "Number of nodes added to the cache")
}

type nodeKey struct {
	ns   string
	hash mssmt.NodeHash
}

// NodeCache is a TreeStorage serving node reads from an LRU cache where it
// can, and from the TreeStorage it wraps otherwise.
type NodeCache struct {
	ts mssmt.TreeStorage

	mu  sync.Mutex
	lru *lru.Cache
}

// New returns a NodeCache of up to size nodes over ts. A nil mf disables the
// metrics.
func New(ts mssmt.TreeStorage, size int, mf monitoring.MetricFactory) *NodeCache {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	once.Do(func() { createMetrics(mf) })
	if size <= 0 {
		size = DefaultSize
	}
	return &NodeCache{ts: ts, lru: lru.New(size)}
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *NodeCache) get(k nodeKey) (mssmt.Node, bool) {
	c.mu.Lock()
	v, ok := c.lru.Get(k)
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return copyNode(v.(mssmt.Node)), true
}

func (c *NodeCache) add(ns string, nodes []mssmt.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range nodes {
		c.lru.Add(nodeKey{ns: ns, hash: n.NodeHash()}, copyNode(n))
	}
	cacheFills.Add(float64(len(nodes)))
}

// copyNode returns a node the caller may keep. Leaves lose the depth they
// were placed at, as they do when read from a store.
func copyNode(n mssmt.Node) mssmt.Node {
	switch n := n.(type) {
	case *mssmt.BranchNode:
		return mssmt.NewStoredBranch(n.NodeHash(), n.Left, n.Right, n.Sum)
	case *mssmt.CompactedLeafNode:
		if n.LeafNode == nil {
			return n
		}
		leaf := &mssmt.LeafNode{Key: n.Key, Value: append([]byte{}, n.Value...), Sum: n.Sum}
		return mssmt.NewStoredLeaf(n.NodeHash(), leaf)
	}
	return n
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (c *NodeCache) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	return c.ts.ReadOnlyTransaction(ctx, ns, func(ctx context.Context, tx mssmt.ReadOnlyTreeTX) error {
		wrapped := &cachedTX{c: c, ns: ns, ro: tx}
		if err := f(ctx, wrapped); err != nil {
			return err
		}
		c.add(ns, wrapped.fetched)
		return nil
	})
}

// ReadWriteTransaction implements mssmt.TreeStorage. Nodes read or written
// by f are cached only once the transaction commits.
func (c *NodeCache) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	wrapped := &cachedTX{c: c, ns: ns}
	err := c.ts.ReadWriteTransaction(ctx, ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		wrapped.ro, wrapped.rw, wrapped.fetched = tx, tx, nil
		return f(ctx, wrapped)
	})
	if err != nil {
		return err
	}
	c.add(ns, wrapped.fetched)
	if klog.V(4).Enabled() {
		klog.Infof("cache: %q holds %d nodes", ns, c.Len())
	}
	return nil
}

// cachedTX records the nodes a transaction reads from the store or writes.
type cachedTX struct {
	c       *NodeCache
	ns      string
	ro      mssmt.ReadOnlyTreeTX
	rw      mssmt.TreeTX
	fetched []mssmt.Node
}

func (t *cachedTX) GetNode(ctx context.Context, h mssmt.NodeHash) (mssmt.Node, error) {
	if n, ok := t.c.get(nodeKey{ns: t.ns, hash: h}); ok {
		cacheHits.Inc()
		return n, nil
	}
	cacheMisses.Inc()
	n, err := t.ro.GetNode(ctx, h)
	if err != nil {
		return nil, err
	}
	t.fetched = append(t.fetched, n)
	return n, nil
}

func (t *cachedTX) GetRoot(ctx context.Context) (*mssmt.Root, error) {
	return t.ro.GetRoot(ctx)
}

func (t *cachedTX) PutNode(ctx context.Context, n mssmt.Node) error {
	if err := t.rw.PutNode(ctx, n); err != nil {
		return err
	}
	t.fetched = append(t.fetched, copyNode(n))
	return nil
}

func (t *cachedTX) SetRoot(ctx context.Context, r *mssmt.Root) error {
	return t.rw.SetRoot(ctx, r)
}
