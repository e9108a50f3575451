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

package sqlstore_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/sqlstore"
	"github.com/sumtree/sumtree/storage/testonly"
)

func TestNodeRows(t *testing.T) {
	h := mssmt.DefaultHasher
	leaf := mssmt.NewCompactedLeafNode(h, 3, &mssmt.LeafNode{Key: testonly.KeyOf(5), Value: []byte("v"), Sum: 7})
	empty := mssmt.NewCompactedLeafNode(h, 3, &mssmt.LeafNode{Key: testonly.KeyOf(6), Value: []byte{}, Sum: 1})
	branch := mssmt.NewStoredBranch(mssmt.NodeHash{1}, mssmt.NodeHash{2}, mssmt.NodeHash{3}, 9)
	for _, n := range []mssmt.Node{leaf, empty, branch} {
		c, err := sqlstore.EncodeNode(n)
		if err != nil {
			t.Fatalf("EncodeNode(%T): %v", n, err)
		}
		got, err := sqlstore.DecodeNode(n.NodeHash(), c)
		if err != nil {
			t.Fatalf("DecodeNode(%T): %v", n, err)
		}
		if got.NodeHash() != n.NodeHash() || got.NodeSum() != n.NodeSum() {
			t.Errorf("DecodeNode()=%v/%d, want %v/%d", got.NodeHash(), got.NodeSum(), n.NodeHash(), n.NodeSum())
		}
		if l, ok := n.(*mssmt.CompactedLeafNode); ok {
			if diff := cmp.Diff(l.LeafNode, got.(*mssmt.CompactedLeafNode).LeafNode); diff != "" {
				t.Errorf("DecodeNode() leaf diff (-want +got):\n%s", diff)
			}
		}
	}
	if _, err := sqlstore.EncodeNode(mssmt.ComputedNode{}); err == nil {
		t.Error("EncodeNode(ComputedNode) succeeded")
	}
}

func TestDecodeNodeMalformed(t *testing.T) {
	hash := make([]byte, mssmt.HashSize)
	for _, tc := range []struct {
		desc string
		c    sqlstore.NodeColumns
	}{
		{desc: "no-columns", c: sqlstore.NodeColumns{Sum: 1}},
		{desc: "one-child", c: sqlstore.NodeColumns{Left: hash, Sum: 1}},
		{desc: "short-child", c: sqlstore.NodeColumns{Left: hash, Right: hash[:5], Sum: 1}},
		{desc: "short-key", c: sqlstore.NodeColumns{Key: hash[:31], Sum: 1}},
		{desc: "negative-sum", c: sqlstore.NodeColumns{Key: hash, Sum: -1}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if _, err := sqlstore.DecodeNode(mssmt.NodeHash{}, tc.c); !errors.Is(err, mssmt.ErrMalformed) {
				t.Errorf("DecodeNode()=%v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeNullValue(t *testing.T) {
	n, err := sqlstore.DecodeNode(mssmt.NodeHash{}, sqlstore.NodeColumns{Key: make([]byte, mssmt.HashSize), Sum: 2})
	if err != nil {
		t.Fatalf("DecodeNode(): %v", err)
	}
	if v := n.(*mssmt.CompactedLeafNode).Value; v == nil || len(v) != 0 {
		t.Errorf("Value=%#v, want an empty non-nil slice", v)
	}
}

func TestInsertArgs(t *testing.T) {
	leaf := mssmt.NewStoredLeaf(mssmt.NodeHash{1}, &mssmt.LeafNode{Key: testonly.KeyOf(1), Value: []byte("v"), Sum: 4})
	args, err := sqlstore.InsertArgs(leaf, "ns")
	if err != nil {
		t.Fatalf("InsertArgs(): %v", err)
	}
	if len(args) != 7 {
		t.Fatalf("InsertArgs() gave %d args, want 7", len(args))
	}
	// Leaves have NULL child hashes.
	if args[1] != nil || args[2] != nil {
		t.Errorf("child hash args=%v, %v, want nil, nil", args[1], args[2])
	}
	if args[5] != int64(4) || args[6] != "ns" {
		t.Errorf("sum, namespace args=%v, %v, want 4, ns", args[5], args[6])
	}
}

func TestDecodeRoot(t *testing.T) {
	hash := make([]byte, mssmt.HashSize)
	hash[0] = 9
	sum := int64(12)
	got, err := sqlstore.DecodeRoot(hash, &sum)
	if err != nil {
		t.Fatalf("DecodeRoot(): %v", err)
	}
	if want := (&mssmt.Root{Hash: mssmt.NodeHash{9}, Sum: 12}); *got != *want {
		t.Errorf("DecodeRoot()=%v, want %v", got, want)
	}
	if _, err := sqlstore.DecodeRoot(hash, nil); !errors.Is(err, mssmt.ErrNodeNotFound) {
		t.Errorf("DecodeRoot(NULL sum)=%v, want ErrNodeNotFound", err)
	}
	if _, err := sqlstore.DecodeRoot(hash[:3], &sum); !errors.Is(err, mssmt.ErrMalformed) {
		t.Errorf("DecodeRoot(short hash)=%v, want ErrMalformed", err)
	}
	neg := int64(-3)
	if _, err := sqlstore.DecodeRoot(hash, &neg); !errors.Is(err, mssmt.ErrMalformed) {
		t.Errorf("DecodeRoot(negative sum)=%v, want ErrMalformed", err)
	}
}
