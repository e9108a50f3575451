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

package mssmt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage"
	"github.com/sumtree/sumtree/storage/memory"
	"github.com/sumtree/sumtree/storage/testonly"
)

var errBackend = errors.New("backend failure")

func checkStoreError(t *testing.T, err error, op string, cause error) {
	t.Helper()
	var se *mssmt.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a StoreError", err)
	}
	if se.Op != op {
		t.Errorf("StoreError.Op=%q, want %q", se.Op, op)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap %v", err, cause)
	}
}

func TestTransactionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ts := storage.NewMockTreeStorage(ctrl)
	ts.EXPECT().ReadWriteTransaction(gomock.Any(), "ns", gomock.Any()).Return(errBackend)
	ts.EXPECT().ReadOnlyTransaction(gomock.Any(), "ns", gomock.Any()).Return(errBackend).Times(3)

	ctx := context.Background()
	tree := mssmt.New(ts)
	_, err := tree.Insert(ctx, "ns", testonly.KeyOf(1), []byte("a"), 1)
	checkStoreError(t, err, "ReadWriteTransaction", errBackend)
	_, err = tree.Get(ctx, "ns", testonly.KeyOf(1))
	checkStoreError(t, err, "ReadOnlyTransaction", errBackend)
	_, err = tree.Root(ctx, "ns")
	checkStoreError(t, err, "ReadOnlyTransaction", errBackend)
	_, err = tree.Prove(ctx, "ns", testonly.KeyOf(1))
	checkStoreError(t, err, "ReadOnlyTransaction", errBackend)
}

func TestMissingNode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := storage.NewMockReadOnlyTreeTX(ctrl)
	ts := storage.NewMockTreeStorage(ctrl)
	ts.EXPECT().ReadOnlyTransaction(gomock.Any(), "ns", gomock.Any()).DoAndReturn(testonly.RunOnReadOnlyTX(tx))
	root := &mssmt.Root{Hash: mssmt.DefaultHasher.HashLeaf(testonly.KeyOf(7), nil, 1), Sum: 1}
	tx.EXPECT().GetRoot(gomock.Any()).Return(root, nil)
	tx.EXPECT().GetNode(gomock.Any(), root.Hash).Return(nil, mssmt.ErrNodeNotFound)

	_, err := mssmt.New(ts).Get(context.Background(), "ns", testonly.KeyOf(1))
	checkStoreError(t, err, "GetNode", mssmt.ErrNodeNotFound)
}

func TestCorruptNodes(t *testing.T) {
	h := mssmt.DefaultHasher
	rootHash := h.HashBranch(h.HashEmpty(1), h.HashEmpty(1), 0)
	wrongLeaf := &mssmt.LeafNode{Key: testonly.KeyOf(1), Value: []byte("a"), Sum: 1}
	for _, tc := range []struct {
		desc string
		root *mssmt.Root
		node mssmt.Node
	}{
		{
			desc: "branch-hash-mismatch",
			root: &mssmt.Root{Hash: rootHash, Sum: 0},
			node: mssmt.NewStoredBranch(rootHash, h.HashEmpty(1), h.HashEmpty(1), 5),
		},
		{
			desc: "leaf-as-root",
			root: &mssmt.Root{Hash: h.HashLeaf(wrongLeaf.Key, wrongLeaf.Value, 1), Sum: 1},
			node: mssmt.NewStoredLeaf(h.HashLeaf(wrongLeaf.Key, wrongLeaf.Value, 1), wrongLeaf),
		},
		{
			desc: "root-sum-out-of-range",
			root: &mssmt.Root{Hash: rootHash, Sum: mssmt.MaxSum + 1},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			tx := storage.NewMockReadOnlyTreeTX(ctrl)
			ts := storage.NewMockTreeStorage(ctrl)
			ts.EXPECT().ReadOnlyTransaction(gomock.Any(), "ns", gomock.Any()).DoAndReturn(testonly.RunOnReadOnlyTX(tx))
			tx.EXPECT().GetRoot(gomock.Any()).Return(tc.root, nil)
			if tc.node != nil {
				tx.EXPECT().GetNode(gomock.Any(), tc.root.Hash).Return(tc.node, nil)
			}

			_, err := mssmt.New(ts).Prove(context.Background(), "ns", testonly.KeyOf(1))
			if !errors.Is(err, mssmt.ErrCorruptNode) {
				t.Errorf("Prove()=%v, want ErrCorruptNode", err)
			}
			var se *mssmt.StoreError
			if errors.As(err, &se) {
				t.Errorf("Prove()=%v, want a non-StoreError", err)
			}
		})
	}
}

func TestWriteFailures(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		putErr error
		setErr error
		wantOp string
	}{
		{desc: "put-node", putErr: errBackend, wantOp: "PutNode"},
		{desc: "set-root", setErr: errBackend, wantOp: "SetRoot"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			tx := storage.NewMockTreeTX(ctrl)
			ts := storage.NewMockTreeStorage(ctrl)
			ts.EXPECT().ReadWriteTransaction(gomock.Any(), "ns", gomock.Any()).DoAndReturn(testonly.RunOnTX(tx))
			tx.EXPECT().GetRoot(gomock.Any()).Return(nil, nil)
			tx.EXPECT().PutNode(gomock.Any(), gomock.Any()).Return(tc.putErr).MinTimes(1)
			if tc.putErr == nil {
				tx.EXPECT().SetRoot(gomock.Any(), gomock.Any()).Return(tc.setErr)
			}

			_, err := mssmt.New(ts).Insert(context.Background(), "ns", testonly.KeyOf(1), []byte("a"), 1)
			checkStoreError(t, err, tc.wantOp, errBackend)
		})
	}
}

func TestEmptyRootClearsRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := mssmt.DefaultHasher
	leaf := &mssmt.LeafNode{Key: testonly.KeyOf(1), Value: []byte("a"), Sum: 2}
	compacted := mssmt.NewCompactedLeafNode(h, 1, leaf)
	root, err := mssmt.NewBranchNode(h, compacted, mssmt.ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}

	tx := storage.NewMockTreeTX(ctrl)
	ts := storage.NewMockTreeStorage(ctrl)
	ts.EXPECT().ReadWriteTransaction(gomock.Any(), "ns", gomock.Any()).DoAndReturn(testonly.RunOnTX(tx))
	tx.EXPECT().GetRoot(gomock.Any()).Return(&mssmt.Root{Hash: root.NodeHash(), Sum: 2}, nil)
	tx.EXPECT().GetNode(gomock.Any(), root.NodeHash()).Return(mssmt.NewStoredBranch(root.NodeHash(), root.Left, root.Right, 2), nil)
	tx.EXPECT().GetNode(gomock.Any(), compacted.NodeHash()).Return(mssmt.NewStoredLeaf(compacted.NodeHash(), leaf), nil)
	tx.EXPECT().PutNode(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	tx.EXPECT().SetRoot(gomock.Any(), gomock.Nil()).Return(nil)

	got, err := mssmt.New(ts).Delete(context.Background(), "ns", leaf.Key)
	if err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if want := (mssmt.Root{Hash: h.HashEmpty(0)}); got != want {
		t.Errorf("Delete()=%v, want %v", got, want)
	}
}

func TestPreconditions(t *testing.T) {
	deny := mssmt.PreconditionFunc(func(context.Context, string, mssmt.Key) (bool, error) { return false, nil })
	fail := mssmt.PreconditionFunc(func(context.Context, string, mssmt.Key) (bool, error) { return false, errBackend })
	for _, tc := range []struct {
		desc      string
		cond      mssmt.Precondition
		wantCause error
	}{
		{desc: "denied", cond: deny},
		{desc: "error", cond: fail, wantCause: errBackend},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			// No storage calls are expected.
			tree := mssmt.New(storage.NewMockTreeStorage(ctrl))
			_, err := tree.Insert(context.Background(), "ns", testonly.KeyOf(1), []byte("a"), 1, tc.cond)
			if !errors.Is(err, mssmt.ErrPreconditionFailed) {
				t.Errorf("Insert()=%v, want ErrPreconditionFailed", err)
			}
			_, err = tree.Delete(context.Background(), "ns", testonly.KeyOf(1), tc.cond)
			if !errors.Is(err, mssmt.ErrPreconditionFailed) {
				t.Errorf("Delete()=%v, want ErrPreconditionFailed", err)
			}
		})
	}
}

// storeTree writes the nodes and sets the root of the namespace directly,
// bypassing the tree's own checks.
func storeTree(t *testing.T, ts mssmt.TreeStorage, ns string, root mssmt.Node, nodes ...mssmt.Node) {
	t.Helper()
	err := ts.ReadWriteTransaction(context.Background(), ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		for _, n := range append(nodes, root) {
			if err := tx.PutNode(ctx, n); err != nil {
				return err
			}
		}
		return tx.SetRoot(ctx, &mssmt.Root{Hash: root.NodeHash(), Sum: root.NodeSum()})
	})
	if err != nil {
		t.Fatalf("storing the tree: %v", err)
	}
}

func TestMisplacedLeaf(t *testing.T) {
	ctx := context.Background()
	h := mssmt.DefaultHasher
	// The leaf key starts with a 1 bit but sits on the left of the root.
	var offPath mssmt.Key
	offPath[0] = 0x80
	leaf := mssmt.NewCompactedLeafNode(h, 1, &mssmt.LeafNode{Key: offPath, Value: []byte("x"), Sum: 3})
	root, err := mssmt.NewBranchNode(h, leaf, mssmt.ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	ts := memory.NewTreeStorage()
	storeTree(t, ts, "ns", root, leaf)
	want, _ := mssmt.New(ts).Root(ctx, "ns")

	for name, opts := range engines() {
		t.Run(name, func(t *testing.T) {
			tree := mssmt.New(ts, opts...)
			if _, err := tree.Prove(ctx, "ns", testonly.KeyOf(1)); !errors.Is(err, mssmt.ErrCorruptNode) {
				t.Errorf("Prove()=%v, want ErrCorruptNode", err)
			}
			if _, err := tree.Get(ctx, "ns", testonly.KeyOf(1)); !errors.Is(err, mssmt.ErrCorruptNode) {
				t.Errorf("Get()=%v, want ErrCorruptNode", err)
			}
			if _, err := tree.Insert(ctx, "ns", testonly.KeyOf(1), []byte("a"), 1); !errors.Is(err, mssmt.ErrCorruptNode) {
				t.Errorf("Insert()=%v, want ErrCorruptNode", err)
			}
			if got, err := tree.Root(ctx, "ns"); err != nil || got != want {
				t.Errorf("Root()=%v, %v, want %v", got, err, want)
			}
		})
	}
}

func TestMisplacedSiblingLeaf(t *testing.T) {
	ctx := context.Background()
	h := mssmt.DefaultHasher
	key := testonly.KeyOf(1)
	// The sibling key starts with 11, so it belongs on the right of the root.
	var offPath mssmt.Key
	offPath[0] = 0xc0
	near := mssmt.NewCompactedLeafNode(h, 2, &mssmt.LeafNode{Key: key, Value: []byte("a"), Sum: 1})
	far := mssmt.NewCompactedLeafNode(h, 2, &mssmt.LeafNode{Key: offPath, Value: []byte("b"), Sum: 2})
	mid, err := mssmt.NewBranchNode(h, near, far)
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	root, err := mssmt.NewBranchNode(h, mid, mssmt.ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	ts := memory.NewTreeStorage()
	storeTree(t, ts, "ns", root, mid, near, far)

	// Deleting key would move the sibling up to depth 1.
	if _, err := mssmt.New(ts).Delete(ctx, "ns", key); !errors.Is(err, mssmt.ErrCorruptNode) {
		t.Errorf("Delete()=%v, want ErrCorruptNode", err)
	}
}
