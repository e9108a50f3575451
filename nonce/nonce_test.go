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

package nonce_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/nonce"
	"github.com/sumtree/sumtree/storage/memory"
	"github.com/sumtree/sumtree/storage/testonly"
)

func newSigner(t *testing.T) (*nonce.Signer, *nonce.Verifier) {
	t.Helper()
	s, err := nonce.NewSigner(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("NewSigner(): %v", err)
	}
	v, err := nonce.NewVerifier(s.Public())
	if err != nil {
		t.Fatalf("NewVerifier(): %v", err)
	}
	return s, v
}

func TestVerify(t *testing.T) {
	s, v := newSigner(t)
	other, err := nonce.GenerateSigner(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigner(): %v", err)
	}
	key := testonly.KeyOf(42)
	sig := s.Sign("ns", key)

	for _, tc := range []struct {
		desc    string
		ns      string
		key     mssmt.Key
		sig     []byte
		want    bool
		wantErr error
	}{
		{desc: "valid", ns: "ns", key: key, sig: sig, want: true},
		{desc: "other-namespace", ns: "ns2", key: key, sig: sig},
		{desc: "other-key", ns: "ns", key: testonly.KeyOf(43), sig: sig},
		{desc: "other-signer", ns: "ns", key: key, sig: other.Sign("ns", key)},
		{desc: "truncated", ns: "ns", key: key, sig: sig[:10], wantErr: nonce.ErrBadSignature},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := v.Verify(tc.ns, tc.key, tc.sig)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Verify()=%v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Verify()=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewSignerBadSeed(t *testing.T) {
	if _, err := nonce.NewSigner([]byte("short")); err == nil {
		t.Error("NewSigner(short seed) succeeded, want error")
	}
	if _, err := nonce.NewVerifier([]byte("short")); err == nil {
		t.Error("NewVerifier(short key) succeeded, want error")
	}
}

func TestGatedInsert(t *testing.T) {
	ctx := context.Background()
	s, v := newSigner(t)
	tree := mssmt.New(memory.NewTreeStorage())
	key := testonly.KeyOf(1)

	if _, err := tree.Insert(ctx, "ns", key, []byte("v"), 10, v.SignedHex(s.SignHex("other", key))); !errors.Is(err, mssmt.ErrPreconditionFailed) {
		t.Fatalf("Insert() with a signature for another namespace=%v, want ErrPreconditionFailed", err)
	}
	if _, err := tree.Insert(ctx, "ns", key, []byte("v"), 10, v.SignedHex("zz")); !errors.Is(err, mssmt.ErrPreconditionFailed) {
		t.Fatalf("Insert() with bad hex=%v, want ErrPreconditionFailed", err)
	}
	root, err := tree.Root(ctx, "ns")
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if root.Sum != 0 {
		t.Fatalf("Root().Sum=%d after denied inserts, want 0", root.Sum)
	}

	conds := []mssmt.Precondition{v.Signed(s.Sign("ns", key)), nonce.Unspent(tree)}
	if _, err := tree.Insert(ctx, "ns", key, []byte("v"), 10, conds...); err != nil {
		t.Fatalf("Insert() with a valid signature: %v", err)
	}
	if _, err := tree.Insert(ctx, "ns", key, []byte("again"), 10, conds...); !errors.Is(err, mssmt.ErrPreconditionFailed) {
		t.Errorf("second Insert() of a spent nonce=%v, want ErrPreconditionFailed", err)
	}
	leaf, err := tree.Get(ctx, "ns", key)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if leaf == nil || string(leaf.Value) != "v" {
		t.Errorf("Get()=%v, want the first value", leaf)
	}
}
