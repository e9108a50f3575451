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

package sqlstore

import (
	"fmt"

	"github.com/sumtree/sumtree/merkle/mssmt"
)

// NodeColumns are the columns of an mssmt_nodes row, in the order of the
// SelectNode results.
type NodeColumns struct {
	Left, Right, Key, Value []byte
	Sum                     int64
}

func toHash(b []byte, what string) (mssmt.NodeHash, error) {
	var h mssmt.NodeHash
	if len(b) != len(h) {
		return h, fmt.Errorf("%w: %s of %d bytes", mssmt.ErrMalformed, what, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func toSum(sum int64) (uint64, error) {
	if sum < 0 {
		return 0, fmt.Errorf("%w: negative sum %d", mssmt.ErrMalformed, sum)
	}
	return uint64(sum), nil
}

// DecodeNode returns the node with hash h stored in the row. Rows with both
// child hashes are branches, rows with a key are leaves.
func DecodeNode(h mssmt.NodeHash, c NodeColumns) (mssmt.Node, error) {
	s, err := toSum(c.Sum)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Left != nil && c.Right != nil:
		left, err := toHash(c.Left, "l_hash_key")
		if err != nil {
			return nil, err
		}
		right, err := toHash(c.Right, "r_hash_key")
		if err != nil {
			return nil, err
		}
		return mssmt.NewStoredBranch(h, left, right, s), nil
	case c.Key != nil:
		k, err := toHash(c.Key, "key")
		if err != nil {
			return nil, err
		}
		value := c.Value
		if value == nil {
			value = []byte{}
		}
		return mssmt.NewStoredLeaf(h, &mssmt.LeafNode{Key: mssmt.Key(k), Value: value, Sum: s}), nil
	}
	return nil, fmt.Errorf("%w: node %s is neither a branch nor a leaf", mssmt.ErrMalformed, h)
}

// EncodeNode returns the columns of the row storing n.
func EncodeNode(n mssmt.Node) (NodeColumns, error) {
	switch n := n.(type) {
	case *mssmt.BranchNode:
		return NodeColumns{Left: n.Left[:], Right: n.Right[:], Sum: int64(n.Sum)}, nil
	case *mssmt.CompactedLeafNode:
		return NodeColumns{Key: n.Key[:], Value: append([]byte{}, n.Value...), Sum: int64(n.Sum)}, nil
	}
	return NodeColumns{}, fmt.Errorf("cannot store node of type %T", n)
}

// InsertArgs returns the arguments of the InsertNode statement for n in
// namespace ns.
func InsertArgs(n mssmt.Node, ns string) ([]interface{}, error) {
	c, err := EncodeNode(n)
	if err != nil {
		return nil, err
	}
	h := n.NodeHash()
	return []interface{}{h[:], nullable(c.Left), nullable(c.Right), nullable(c.Key), nullable(c.Value), c.Sum, ns}, nil
}

// nullable maps a nil column to NULL.
func nullable(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return b
}

// DecodeRoot returns the root of a SelectRoot row. A nil sum means that the
// root node is missing.
func DecodeRoot(hash []byte, sum *int64) (*mssmt.Root, error) {
	h, err := toHash(hash, "root_hash")
	if err != nil {
		return nil, err
	}
	if sum == nil {
		return nil, fmt.Errorf("%w: root %s", mssmt.ErrNodeNotFound, h)
	}
	s, err := toSum(*sum)
	if err != nil {
		return nil, err
	}
	return &mssmt.Root{Hash: h, Sum: s}, nil
}
