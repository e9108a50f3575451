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

package testonly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"golang.org/x/sync/errgroup"
)

// StorageFactory returns a fresh TreeStorage for one check.
type StorageFactory func(t *testing.T) mssmt.TreeStorage

// TestTreeStorage runs the checks every TreeStorage implementation must pass.
func TestTreeStorage(t *testing.T, newStorage StorageFactory) {
	ctx := context.Background()
	for _, f := range []func(context.Context, *testing.T, mssmt.TreeStorage){
		CheckNodeRoundTrip,
		CheckNodeNotFound,
		CheckPutNodeIdempotent,
		CheckReadYourWrites,
		CheckRootLifecycle,
		CheckRollback,
		CheckNamespaceIsolation,
		CheckTreeScenario,
		CheckFullAndCompactedAgree,
		CheckHistoricalProofs,
		CheckConcurrentReaders,
	} {
		f := f
		t.Run(functionName(f), func(t *testing.T) { f(ctx, t, newStorage(t)) })
	}
}

func functionName(i interface{}) string {
	pc := reflect.ValueOf(i).Pointer()
	nameFull := runtime.FuncForPC(pc).Name()
	return strings.TrimPrefix(filepath.Ext(nameFull), ".")
}

// KeyOf returns the key with the big-endian value i in its last bytes.
func KeyOf(i uint64) mssmt.Key {
	var k mssmt.Key
	for j := 0; j < 8; j++ {
		k[mssmt.HashSize-1-j] = byte(i >> (8 * j))
	}
	return k
}

var nsCount int64

// uniqueNamespace returns a namespace not used by any other check, so that
// checks may share a database.
func uniqueNamespace(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&nsCount, 1))
}

func testNodes(t *testing.T) (*mssmt.CompactedLeafNode, *mssmt.BranchNode) {
	t.Helper()
	h := mssmt.DefaultHasher
	leaf := mssmt.NewCompactedLeafNode(h, 1, &mssmt.LeafNode{Key: KeyOf(1), Value: []byte("one"), Sum: 5})
	branch, err := mssmt.NewBranchNode(h, leaf, mssmt.ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	return leaf, branch
}

func put(ctx context.Context, t *testing.T, s mssmt.TreeStorage, ns string, root *mssmt.Root, nodes ...mssmt.Node) {
	t.Helper()
	if err := s.ReadWriteTransaction(ctx, ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		for _, n := range nodes {
			if err := tx.PutNode(ctx, n); err != nil {
				return err
			}
		}
		if root != nil {
			return tx.SetRoot(ctx, root)
		}
		return nil
	}); err != nil {
		t.Fatalf("ReadWriteTransaction(): %v", err)
	}
}

func getNode(ctx context.Context, s mssmt.TreeStorage, ns string, h mssmt.NodeHash) (n mssmt.Node, err error) {
	err = s.ReadOnlyTransaction(ctx, ns, func(ctx context.Context, tx mssmt.ReadOnlyTreeTX) error {
		n, err = tx.GetNode(ctx, h)
		return err
	})
	return n, err
}

func getRoot(ctx context.Context, t *testing.T, s mssmt.TreeStorage, ns string) *mssmt.Root {
	t.Helper()
	var r *mssmt.Root
	if err := s.ReadOnlyTransaction(ctx, ns, func(ctx context.Context, tx mssmt.ReadOnlyTreeTX) error {
		var err error
		r, err = tx.GetRoot(ctx)
		return err
	}); err != nil {
		t.Fatalf("GetRoot(): %v", err)
	}
	return r
}

// CheckNodeRoundTrip checks that stored branches and leaves read back intact.
func CheckNodeRoundTrip(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("roundtrip")
	leaf, branch := testNodes(t)
	put(ctx, t, s, ns, nil, leaf, branch)

	n, err := getNode(ctx, s, ns, branch.NodeHash())
	if err != nil {
		t.Fatalf("GetNode(branch): %v", err)
	}
	gotBranch, ok := n.(*mssmt.BranchNode)
	if !ok {
		t.Fatalf("GetNode(branch)=%T, want *BranchNode", n)
	}
	if gotBranch.NodeHash() != branch.NodeHash() || gotBranch.Left != branch.Left || gotBranch.Right != branch.Right || gotBranch.Sum != branch.Sum {
		t.Errorf("GetNode(branch)=%+v, want %+v", gotBranch, branch)
	}

	n, err = getNode(ctx, s, ns, leaf.NodeHash())
	if err != nil {
		t.Fatalf("GetNode(leaf): %v", err)
	}
	gotLeaf, ok := n.(*mssmt.CompactedLeafNode)
	if !ok {
		t.Fatalf("GetNode(leaf)=%T, want *CompactedLeafNode", n)
	}
	if gotLeaf.NodeHash() != leaf.NodeHash() {
		t.Errorf("GetNode(leaf) hash %s, want %s", gotLeaf.NodeHash(), leaf.NodeHash())
	}
	if diff := cmp.Diff(leaf.LeafNode, gotLeaf.LeafNode); diff != "" {
		t.Errorf("GetNode(leaf) diff (-want +got):\n%s", diff)
	}
}

// CheckNodeNotFound checks that unknown nodes are reported as such.
func CheckNodeNotFound(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("notfound")
	if _, err := getNode(ctx, s, ns, mssmt.NodeHash{1}); !errors.Is(err, mssmt.ErrNodeNotFound) {
		t.Errorf("GetNode(unknown)=%v, want ErrNodeNotFound", err)
	}
}

// CheckPutNodeIdempotent checks that storing a node again is a no-op.
func CheckPutNodeIdempotent(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("idempotent")
	leaf, branch := testNodes(t)
	put(ctx, t, s, ns, nil, leaf, branch, leaf)
	put(ctx, t, s, ns, nil, branch, leaf)
	if _, err := getNode(ctx, s, ns, branch.NodeHash()); err != nil {
		t.Errorf("GetNode(): %v", err)
	}
}

// CheckReadYourWrites checks that a transaction sees its own writes.
func CheckReadYourWrites(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("ryw")
	leaf, branch := testNodes(t)
	root := &mssmt.Root{Hash: branch.NodeHash(), Sum: branch.Sum}
	if err := s.ReadWriteTransaction(ctx, ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		for _, n := range []mssmt.Node{leaf, branch} {
			if err := tx.PutNode(ctx, n); err != nil {
				return err
			}
			if _, err := tx.GetNode(ctx, n.NodeHash()); err != nil {
				return fmt.Errorf("GetNode() after PutNode(): %v", err)
			}
		}
		if err := tx.SetRoot(ctx, root); err != nil {
			return err
		}
		got, err := tx.GetRoot(ctx)
		if err != nil {
			return err
		}
		if got == nil || *got != *root {
			return fmt.Errorf("GetRoot() after SetRoot()=%v, want %v", got, root)
		}
		return nil
	}); err != nil {
		t.Fatalf("ReadWriteTransaction(): %v", err)
	}
}

// CheckRootLifecycle checks setting, replacing and removing a root.
func CheckRootLifecycle(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("root")
	if r := getRoot(ctx, t, s, ns); r != nil {
		t.Fatalf("GetRoot() on a new namespace=%v, want nil", r)
	}
	leaf, branch := testNodes(t)
	root := &mssmt.Root{Hash: branch.NodeHash(), Sum: branch.Sum}
	put(ctx, t, s, ns, root, leaf, branch)
	if got := getRoot(ctx, t, s, ns); got == nil || *got != *root {
		t.Fatalf("GetRoot()=%v, want %v", got, root)
	}

	h := mssmt.DefaultHasher
	other := mssmt.NewCompactedLeafNode(h, 1, &mssmt.LeafNode{Key: KeyOf(2), Value: []byte("two"), Sum: 7})
	b2, err := mssmt.NewBranchNode(h, other, mssmt.ComputedNode{Hash: h.HashEmpty(1)})
	if err != nil {
		t.Fatalf("NewBranchNode(): %v", err)
	}
	root2 := &mssmt.Root{Hash: b2.NodeHash(), Sum: b2.Sum}
	put(ctx, t, s, ns, root2, other, b2)
	if got := getRoot(ctx, t, s, ns); got == nil || *got != *root2 {
		t.Fatalf("GetRoot() after replace=%v, want %v", got, root2)
	}

	if err := s.ReadWriteTransaction(ctx, ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		return tx.SetRoot(ctx, nil)
	}); err != nil {
		t.Fatalf("SetRoot(nil): %v", err)
	}
	if r := getRoot(ctx, t, s, ns); r != nil {
		t.Errorf("GetRoot() after SetRoot(nil)=%v, want nil", r)
	}
	if _, err := getNode(ctx, s, ns, branch.NodeHash()); err != nil {
		t.Errorf("GetNode() of an old root: %v", err)
	}
}

// CheckRollback checks that a failed transaction commits nothing.
func CheckRollback(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("rollback")
	leaf, branch := testNodes(t)
	errAbort := errors.New("abort")
	err := s.ReadWriteTransaction(ctx, ns, func(ctx context.Context, tx mssmt.TreeTX) error {
		for _, n := range []mssmt.Node{leaf, branch} {
			if err := tx.PutNode(ctx, n); err != nil {
				return err
			}
		}
		if err := tx.SetRoot(ctx, &mssmt.Root{Hash: branch.NodeHash(), Sum: branch.Sum}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("ReadWriteTransaction()=%v, want %v", err, errAbort)
	}
	if r := getRoot(ctx, t, s, ns); r != nil {
		t.Errorf("GetRoot() after rollback=%v, want nil", r)
	}
	if _, err := getNode(ctx, s, ns, branch.NodeHash()); !errors.Is(err, mssmt.ErrNodeNotFound) {
		t.Errorf("GetNode() after rollback=%v, want ErrNodeNotFound", err)
	}
}

// CheckNamespaceIsolation checks that namespaces do not see each other.
func CheckNamespaceIsolation(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	a, b := uniqueNamespace("iso"), uniqueNamespace("iso")
	leaf, branch := testNodes(t)
	put(ctx, t, s, a, &mssmt.Root{Hash: branch.NodeHash(), Sum: branch.Sum}, leaf, branch)
	if r := getRoot(ctx, t, s, b); r != nil {
		t.Errorf("GetRoot(%q)=%v, want nil", b, r)
	}
	if _, err := getNode(ctx, s, b, branch.NodeHash()); !errors.Is(err, mssmt.ErrNodeNotFound) {
		t.Errorf("GetNode(%q)=%v, want ErrNodeNotFound", b, err)
	}
}

// CheckTreeScenario runs a short sequence of tree mutations and checks the
// roots and proofs after each.
func CheckTreeScenario(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("ns1")
	tree := mssmt.New(s)
	k1, k2 := KeyOf(1), KeyOf(2)

	r1, err := tree.Insert(ctx, ns, k1, []byte("a"), 5)
	if err != nil {
		t.Fatalf("Insert(k1): %v", err)
	}
	r2, err := tree.Insert(ctx, ns, k2, []byte("b"), 7)
	if err != nil {
		t.Fatalf("Insert(k2): %v", err)
	}
	if r2.Sum != 12 {
		t.Errorf("root sum=%d, want 12", r2.Sum)
	}
	if got, err := tree.Root(ctx, ns); err != nil || got != r2 {
		t.Errorf("Root()=%v, %v, want %v", got, err, r2)
	}

	p, err := tree.Prove(ctx, ns, k2)
	if err != nil {
		t.Fatalf("Prove(k2): %v", err)
	}
	if !mssmt.VerifyInclusion(r2, k2, p, []byte("b"), 7) {
		t.Error("VerifyInclusion(k2) failed")
	}
	if mssmt.VerifyInclusion(r2, k2, p, []byte("b"), 6) {
		t.Error("VerifyInclusion(k2) with the wrong sum succeeded")
	}

	leaf, err := tree.Get(ctx, ns, k1)
	if err != nil {
		t.Fatalf("Get(k1): %v", err)
	}
	if leaf == nil || !bytes.Equal(leaf.Value, []byte("a")) || leaf.Sum != 5 {
		t.Errorf("Get(k1)=%v, want a/5", leaf)
	}

	r3, err := tree.Delete(ctx, ns, k2)
	if err != nil {
		t.Fatalf("Delete(k2): %v", err)
	}
	if r3 != r1 {
		t.Errorf("root after Delete(k2)=%v, want the single-key root %v", r3, r1)
	}
	if p, err := tree.Prove(ctx, ns, k2); err != nil || !mssmt.VerifyNonInclusion(r3, k2, p) {
		t.Errorf("non-inclusion of k2 after Delete: %v", err)
	}
	if leaf, err := tree.Get(ctx, ns, k2); err != nil || leaf != nil {
		t.Errorf("Get(k2) after Delete=%v, %v, want nil, nil", leaf, err)
	}

	r4, err := tree.Delete(ctx, ns, k1)
	if err != nil {
		t.Fatalf("Delete(k1): %v", err)
	}
	if want := (mssmt.Root{Hash: mssmt.DefaultHasher.HashEmpty(0)}); r4 != want {
		t.Errorf("root after deleting every key=%v, want %v", r4, want)
	}
	if r := getRoot(ctx, t, s, ns); r != nil {
		t.Errorf("stored root of an emptied tree=%v, want nil", r)
	}
}

// CheckFullAndCompactedAgree checks that both tree representations give the
// same roots, and can share one namespace.
func CheckFullAndCompactedAgree(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	full, compacted := mssmt.New(s, mssmt.WithCompaction(false)), mssmt.New(s)
	nsFull, nsCompacted, nsMixed := uniqueNamespace("full"), uniqueNamespace("compacted"), uniqueNamespace("mixed")
	for i := uint64(1); i <= 8; i++ {
		k := KeyOf(i * 0x0101010101)
		value := []byte(fmt.Sprintf("value-%d", i))
		rf, err := full.Insert(ctx, nsFull, k, value, i)
		if err != nil {
			t.Fatalf("full Insert(%d): %v", i, err)
		}
		rc, err := compacted.Insert(ctx, nsCompacted, k, value, i)
		if err != nil {
			t.Fatalf("compacted Insert(%d): %v", i, err)
		}
		mixed := full
		if i%2 == 0 {
			mixed = compacted
		}
		rm, err := mixed.Insert(ctx, nsMixed, k, value, i)
		if err != nil {
			t.Fatalf("mixed Insert(%d): %v", i, err)
		}
		if rf != rc || rf != rm {
			t.Fatalf("after %d inserts: full root %v, compacted root %v, mixed root %v", i, rf, rc, rm)
		}
	}
	for _, ns := range []string{nsFull, nsCompacted, nsMixed} {
		for _, tree := range []*mssmt.Tree{full, compacted} {
			root, err := tree.Root(ctx, ns)
			if err != nil {
				t.Fatalf("Root(%q): %v", ns, err)
			}
			k := KeyOf(3 * 0x0101010101)
			p, err := tree.Prove(ctx, ns, k)
			if err != nil {
				t.Fatalf("Prove(%q): %v", ns, err)
			}
			if !mssmt.VerifyInclusion(root, k, p, []byte("value-3"), 3) {
				t.Errorf("VerifyInclusion in %q failed", ns)
			}
		}
	}
}

// CheckHistoricalProofs checks that past roots can still be proven against.
func CheckHistoricalProofs(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("history")
	tree := mssmt.New(s)
	var roots []mssmt.Root
	for i := uint64(1); i <= 4; i++ {
		r, err := tree.Insert(ctx, ns, KeyOf(i), []byte{byte(i)}, i)
		if err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		roots = append(roots, r)
	}
	if _, err := tree.Delete(ctx, ns, KeyOf(1)); err != nil {
		t.Fatalf("Delete(1): %v", err)
	}
	for i, r := range roots {
		p, err := tree.ProveAt(ctx, ns, r.Hash, KeyOf(1))
		if err != nil {
			t.Fatalf("ProveAt(root %d): %v", i, err)
		}
		if !mssmt.VerifyInclusion(r, KeyOf(1), p, []byte{1}, 1) {
			t.Errorf("VerifyInclusion at root %d failed", i)
		}
	}
}

// CheckConcurrentReaders checks that reads run alongside mutations and see
// consistent trees.
func CheckConcurrentReaders(ctx context.Context, t *testing.T, s mssmt.TreeStorage) {
	ns := uniqueNamespace("concurrent")
	tree := mssmt.New(s)
	const n = 16
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := uint64(1); i <= n; i++ {
			if _, err := tree.Insert(gctx, ns, KeyOf(i), []byte{byte(i)}, i); err != nil {
				return err
			}
		}
		return nil
	})
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for i := 0; i < n; i++ {
				root, err := tree.Root(gctx, ns)
				if err != nil {
					return err
				}
				p, err := tree.ProveAt(gctx, ns, root.Hash, KeyOf(1))
				if err != nil {
					return err
				}
				if root.Sum == 0 {
					continue
				}
				if !mssmt.VerifyInclusion(root, KeyOf(1), p, []byte{1}, 1) {
					return fmt.Errorf("proof of key 1 does not verify against root %v", root)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent operations: %v", err)
	}
	root, err := tree.Root(ctx, ns)
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if want := uint64(n * (n + 1) / 2); root.Sum != want {
		t.Errorf("root sum=%d, want %d", root.Sum, want)
	}
}
