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

import "context"

// Root is the state of a tree: its root hash and the sum of all its leaves.
type Root struct {
	Hash NodeHash
	Sum  uint64
}

// ReadOnlyTreeTX reads nodes and the root of one namespace.
type ReadOnlyTreeTX interface {
	// GetNode returns the node stored under the given hash, a *BranchNode or
	// a *CompactedLeafNode of unknown depth. Returns an error wrapping
	// ErrNodeNotFound if there is no such node.
	GetNode(ctx context.Context, hash NodeHash) (Node, error)
	// GetRoot returns the current root of the namespace, or nil if the
	// namespace holds no tree.
	GetRoot(ctx context.Context) (*Root, error)
}

// TreeTX reads and writes nodes and the root of one namespace. Writes become
// visible to other transactions only once the transaction commits.
type TreeTX interface {
	ReadOnlyTreeTX
	// PutNode stores the given node, a *BranchNode or a *CompactedLeafNode,
	// under its hash. Storing the same node twice is a no-op.
	PutNode(ctx context.Context, node Node) error
	// SetRoot replaces the root of the namespace. A nil root removes it.
	SetRoot(ctx context.Context, root *Root) error
}

// ReadOnlyTreeTXFunc is the body of a read-only transaction.
type ReadOnlyTreeTXFunc func(context.Context, ReadOnlyTreeTX) error

// TreeTXFunc is the body of a read-write transaction.
type TreeTXFunc func(context.Context, TreeTX) error

// TreeStorage is the persistence layer of the tree. Nodes and roots are
// partitioned by namespace, so independent trees can share one storage.
type TreeStorage interface {
	// ReadOnlyTransaction runs f against a consistent snapshot of the
	// namespace.
	ReadOnlyTransaction(ctx context.Context, namespace string, f ReadOnlyTreeTXFunc) error
	// ReadWriteTransaction runs f in a transaction that commits all of its
	// writes atomically if f returns nil, and none of them otherwise. A root
	// set by the transaction never becomes visible without the nodes it
	// references. Errors returned by f are passed through.
	ReadWriteTransaction(ctx context.Context, namespace string, f TreeTXFunc) error
}
