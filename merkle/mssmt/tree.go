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

// Package mssmt implements a Merkle-sum sparse Merkle tree: a 256-level
// binary tree keyed by 32-byte keys, in which every node commits to both the
// hashes and the sums of its children.
package mssmt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/util/clock"
	"golang.org/x/sync/semaphore"
	"k8s.io/klog/v2"
)

const (
	namespaceLabel = "namespace"
	opLabel        = "op"
	outcomeLabel   = "outcome"
)

var (
	once        sync.Once
	opCounter   monitoring.Counter
	opLatency   monitoring.Histogram
	rootSum     monitoring.Gauge
	rootChanges monitoring.Counter
)

func createMetrics(mf monitoring.MetricFactory) {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	opCounter = mf.NewCounter("mssmt_operations", "Number of tree operations", namespaceLabel, opLabel, outcomeLabel)
	opLatency = mf.NewHistogramWithBuckets("mssmt_operation_latency", "Latency of tree operations in seconds", monitoring.LatencyBuckets(), opLabel)
	rootSum = mf.NewGauge("mssmt_root_sum", "Sum of all leaves of the tree, as of the last mutation", namespaceLabel)
	rootChanges = mf.NewCounter("mssmt_root_changes", "Number of mutations that changed the root", namespaceLabel)
}

// Precondition is consulted before a mutation of key in namespace, and may
// deny it. A denied mutation fails with ErrPreconditionFailed.
type Precondition interface {
	Permit(ctx context.Context, namespace string, key Key) (bool, error)
}

// PreconditionFunc adapts a function to a Precondition.
type PreconditionFunc func(ctx context.Context, namespace string, key Key) (bool, error)

// Permit implements Precondition.
func (f PreconditionFunc) Permit(ctx context.Context, namespace string, key Key) (bool, error) {
	return f(ctx, namespace, key)
}

// Option configures a Tree.
type Option func(*Tree)

// WithHasher makes the tree use the given hasher instead of DefaultHasher.
func WithHasher(h *Hasher) Option {
	return func(t *Tree) { t.h = h }
}

// WithCompaction selects the compacted representation if enabled, the
// default, or the full representation otherwise. Both give the same roots and
// proofs, and can be used on the same storage.
func WithCompaction(enabled bool) Option {
	return func(t *Tree) { t.compact = enabled }
}

// WithMetricFactory makes the tree report metrics through mf. Metrics are
// created once per process, by the first tree constructed.
func WithMetricFactory(mf monitoring.MetricFactory) Option {
	return func(t *Tree) { t.mf = mf }
}

// WithTimeSource makes the tree measure latencies with ts.
func WithTimeSource(ts clock.TimeSource) Option {
	return func(t *Tree) { t.timeSource = ts }
}

// Tree is a set of Merkle-sum sparse Merkle trees, one per namespace, over a
// TreeStorage. Mutations of a namespace are serialized. Reads run on storage
// snapshots and do not wait for mutations.
type Tree struct {
	ts         TreeStorage
	h          *Hasher
	compact    bool
	mf         monitoring.MetricFactory
	timeSource clock.TimeSource
	w          writer

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// New returns a Tree stored in ts.
func New(ts TreeStorage, opts ...Option) *Tree {
	t := &Tree{
		ts:         ts,
		h:          DefaultHasher,
		compact:    true,
		timeSource: clock.System,
		locks:      make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(t)
	}
	once.Do(func() {
		createMetrics(t.mf)
	})
	if t.compact {
		t.w = compactedWriter{nodeWriter{h: t.h}}
	} else {
		t.w = fullWriter{nodeWriter{h: t.h}}
	}
	return t
}

// Hasher returns the hasher of the tree.
func (t *Tree) Hasher() *Hasher {
	return t.h
}

// Verifier returns a Verifier for the proofs of the tree.
func (t *Tree) Verifier() *Verifier {
	return NewVerifier(t.h)
}

// lock waits for exclusive access to the namespace, and returns the function
// releasing it.
func (t *Tree) lock(ctx context.Context, namespace string) (func(), error) {
	t.mu.Lock()
	s, ok := t.locks[namespace]
	if !ok {
		s = semaphore.NewWeighted(1)
		t.locks[namespace] = s
	}
	t.mu.Unlock()
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.Release(1) }, nil
}

// observe records the outcome and latency of an operation.
func (t *Tree) observe(op, namespace string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		klog.Warningf("mssmt: %s in namespace %q failed: %v", op, namespace, err)
	}
	opCounter.Inc(namespace, op, outcome)
	opLatency.Observe(clock.SecondsSince(t.timeSource, start), op)
}

// rootHash returns the hash of the stored root, the empty tree hash if there
// is none.
func (t *Tree) rootHash(r *Root) NodeHash {
	if r == nil {
		return t.h.HashEmpty(0)
	}
	return r.Hash
}

func (t *Tree) getRoot(ctx context.Context, tx ReadOnlyTreeTX) (*Root, error) {
	r, err := tx.GetRoot(ctx)
	if err != nil {
		return nil, storeError("GetRoot", err)
	}
	if r != nil && r.Sum > MaxSum {
		return nil, corruptf(r.Hash, 0, "root sum %d out of range", r.Sum)
	}
	return r, nil
}

// mutate runs m on the current root of the namespace and stores the root it
// returns, all in one transaction.
func (t *Tree) mutate(ctx context.Context, op, namespace string, key Key, conds []Precondition, m func(context.Context, TreeTX, NodeHash) (Root, error)) (root Root, err error) {
	start := t.timeSource.Now()
	defer func() { t.observe(op, namespace, start, err) }()

	unlock, err := t.lock(ctx, namespace)
	if err != nil {
		return Root{}, err
	}
	defer unlock()

	for _, c := range conds {
		ok, err := c.Permit(ctx, namespace, key)
		if err != nil {
			return Root{}, fmt.Errorf("%w: %s of %s: %v", ErrPreconditionFailed, op, key, err)
		}
		if !ok {
			return Root{}, fmt.Errorf("%w: %s of %s denied", ErrPreconditionFailed, op, key)
		}
	}

	var old NodeHash
	err = t.ts.ReadWriteTransaction(ctx, namespace, func(ctx context.Context, tx TreeTX) error {
		r, err := t.getRoot(ctx, tx)
		if err != nil {
			return err
		}
		old = t.rootHash(r)
		if root, err = m(ctx, tx, old); err != nil {
			return err
		}
		if root.Hash == old {
			return nil
		}
		if root.Hash == t.h.HashEmpty(0) {
			return storeError("SetRoot", tx.SetRoot(ctx, nil))
		}
		return storeError("SetRoot", tx.SetRoot(ctx, &root))
	})
	if err != nil {
		return Root{}, storeError("ReadWriteTransaction", err)
	}
	if root.Hash != old {
		rootChanges.Inc(namespace)
	}
	rootSum.Set(float64(root.Sum), namespace)
	klog.V(2).Infof("mssmt: %s(%q, %s): root %s -> %s, sum %d", op, namespace, key, old, root.Hash, root.Sum)
	return root, nil
}

// Insert stores value and sum at key in the namespace, replacing any previous
// leaf there, and returns the new root. The mutation happens only if every
// precondition permits it.
func (t *Tree) Insert(ctx context.Context, namespace string, key Key, value []byte, sum uint64, conds ...Precondition) (Root, error) {
	if sum > MaxSum {
		return Root{}, fmt.Errorf("%w: %d is above %d", ErrInvalidSum, sum, uint64(MaxSum))
	}
	leaf := &LeafNode{Key: key, Value: append([]byte{}, value...), Sum: sum}
	return t.mutate(ctx, "insert", namespace, key, conds, func(ctx context.Context, tx TreeTX, root NodeHash) (Root, error) {
		return t.w.insert(ctx, tx, root, leaf)
	})
}

// Delete removes the leaf at key from the namespace, and returns the new root.
// Deleting an absent key leaves the tree unchanged.
func (t *Tree) Delete(ctx context.Context, namespace string, key Key, conds ...Precondition) (Root, error) {
	return t.mutate(ctx, "delete", namespace, key, conds, func(ctx context.Context, tx TreeTX, root NodeHash) (Root, error) {
		return t.w.delete(ctx, tx, root, key)
	})
}

// Get returns the leaf at key in the namespace, or nil if there is none.
func (t *Tree) Get(ctx context.Context, namespace string, key Key) (leaf *LeafNode, err error) {
	start := t.timeSource.Now()
	defer func() { t.observe("get", namespace, start, err) }()
	err = t.ts.ReadOnlyTransaction(ctx, namespace, func(ctx context.Context, tx ReadOnlyTreeTX) error {
		r, err := t.getRoot(ctx, tx)
		if err != nil {
			return err
		}
		leaf, err = lookup(ctx, tx, t.h, t.rootHash(r), key)
		return err
	})
	if err != nil {
		return nil, storeError("ReadOnlyTransaction", err)
	}
	return leaf, nil
}

// Root returns the current root of the namespace. A namespace that was never
// written to holds the empty tree.
func (t *Tree) Root(ctx context.Context, namespace string) (root Root, err error) {
	err = t.ts.ReadOnlyTransaction(ctx, namespace, func(ctx context.Context, tx ReadOnlyTreeTX) error {
		r, err := t.getRoot(ctx, tx)
		if err != nil {
			return err
		}
		root = Root{Hash: t.rootHash(r)}
		if r != nil {
			root.Sum = r.Sum
		}
		return nil
	})
	if err != nil {
		return Root{}, storeError("ReadOnlyTransaction", err)
	}
	return root, nil
}

// Prove returns a proof of the leaf at key, or of its absence, against the
// current root of the namespace.
func (t *Tree) Prove(ctx context.Context, namespace string, key Key) (*Proof, error) {
	return t.prove(ctx, namespace, nil, key)
}

// ProveAt returns a proof of the leaf at key, or of its absence, against a
// past root of the namespace. Nodes are never deleted, so every root the
// namespace has had can be proven against.
func (t *Tree) ProveAt(ctx context.Context, namespace string, root NodeHash, key Key) (*Proof, error) {
	return t.prove(ctx, namespace, &root, key)
}

func (t *Tree) prove(ctx context.Context, namespace string, at *NodeHash, key Key) (proof *Proof, err error) {
	start := t.timeSource.Now()
	defer func() { t.observe("prove", namespace, start, err) }()
	err = t.ts.ReadOnlyTransaction(ctx, namespace, func(ctx context.Context, tx ReadOnlyTreeTX) error {
		var root NodeHash
		if at != nil {
			root = *at
		} else {
			r, err := t.getRoot(ctx, tx)
			if err != nil {
				return err
			}
			root = t.rootHash(r)
		}
		p, err := walk(ctx, tx, t.h, root, key)
		if err != nil {
			return err
		}
		proof = p.proof()
		return nil
	})
	if err != nil {
		return nil, storeError("ReadOnlyTransaction", err)
	}
	klog.V(2).Infof("mssmt: prove(%q, %s): %v terminal at depth %d", namespace, key, proof.Kind, proof.Depth())
	return proof, nil
}
