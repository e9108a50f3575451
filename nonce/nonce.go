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

// Package nonce gates tree mutations on signed nonces. The key of a leaf is
// the nonce, and a mutation of it is permitted only with a signature of the
// namespace and key by a trusted signer.
package nonce

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"golang.org/x/crypto/ed25519"
	"k8s.io/klog/v2"
)

// ErrBadSignature is returned for signatures of the wrong length.
var ErrBadSignature = errors.New("nonce: malformed signature")

const domain = "sumtree/nonce/v1"

// Message returns the bytes signed to permit mutations of key in namespace.
func Message(namespace string, key mssmt.Key) []byte {
	msg := make([]byte, 0, len(domain)+binary.MaxVarintLen64+len(namespace)+len(key))
	msg = append(msg, domain...)
	msg = binary.AppendUvarint(msg, uint64(len(namespace)))
	msg = append(msg, namespace...)
	return append(msg, key[:]...)
}

// Signer signs nonces.
type Signer struct {
	priv ed25519.PrivateKey
}

// NewSigner returns a Signer with the key derived from seed.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("nonce: seed of %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return &Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateSigner returns a Signer with a new key read from rand.
func GenerateSigner(rand io.Reader) (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return &Signer{priv: priv}, nil
}

// Public returns the key verifying the signatures of s.
func (s *Signer) Public() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// Sign signs the nonce key in namespace.
func (s *Signer) Sign(namespace string, key mssmt.Key) []byte {
	return ed25519.Sign(s.priv, Message(namespace, key))
}

// SignHex signs the nonce key in namespace, and returns the signature in hex.
func (s *Signer) SignHex(namespace string, key mssmt.Key) string {
	return hex.EncodeToString(s.Sign(namespace, key))
}

// Verifier checks the signatures of one signer.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier returns a Verifier of the signatures made with pub.
func NewVerifier(pub ed25519.PublicKey) (*Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("nonce: public key of %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	return &Verifier{pub: pub}, nil
}

// Verify tells whether sig signs key in namespace.
func (v *Verifier) Verify(namespace string, key mssmt.Key, sig []byte) (bool, error) {
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: %d bytes", ErrBadSignature, len(sig))
	}
	return ed25519.Verify(v.pub, Message(namespace, key), sig), nil
}

// Signed returns a precondition permitting the mutation that sig signs.
func (v *Verifier) Signed(sig []byte) mssmt.Precondition {
	return mssmt.PreconditionFunc(func(_ context.Context, namespace string, key mssmt.Key) (bool, error) {
		ok, err := v.Verify(namespace, key, sig)
		if err == nil && !ok {
			klog.V(1).Infof("nonce: rejected signature for %s in %q", key, namespace)
		}
		return ok, err
	})
}

// SignedHex is like Signed, for a signature in hex.
func (v *Verifier) SignedHex(sig string) mssmt.Precondition {
	b, err := hex.DecodeString(sig)
	if err != nil {
		return mssmt.PreconditionFunc(func(context.Context, string, mssmt.Key) (bool, error) {
			return false, fmt.Errorf("%w: %v", ErrBadSignature, err)
		})
	}
	return v.Signed(b)
}

// Getter reads leaves of a tree.
type Getter interface {
	Get(ctx context.Context, namespace string, key mssmt.Key) (*mssmt.LeafNode, error)
}

// Unspent returns a precondition permitting the mutation of keys that are
// not in the tree yet, so that each nonce is used once.
func Unspent(g Getter) mssmt.Precondition {
	return mssmt.PreconditionFunc(func(ctx context.Context, namespace string, key mssmt.Key) (bool, error) {
		leaf, err := g.Get(ctx, namespace, key)
		if err != nil {
			return false, err
		}
		return leaf == nil, nil
	})
}
