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

// Package bolt provides a TreeStorage kept in a bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/kvlayout"
	bbolt "go.etcd.io/bbolt"
	"k8s.io/klog/v2"
)

// Bucket names.
var (
	nodesBucket = []byte("mssmt_nodes")
	rootsBucket = []byte("mssmt_roots")
)

// TreeStorage is a mssmt.TreeStorage over a bbolt database.
type TreeStorage struct {
	db *bbolt.DB
}

// Open opens, or creates, the database at path. It waits up to timeout for
// other processes to release the file.
func Open(path string, timeout time.Duration) (*TreeStorage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{nodesBucket, rootsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}
	klog.V(1).Infof("bolt: opened %s", path)
	return &TreeStorage{db: db}, nil
}

// Close closes the database.
func (s *TreeStorage) Close() error {
	return s.db.Close()
}

// bucketFor returns the bucket holding key.
func bucketFor(tx *bbolt.Tx, key []byte) *bbolt.Bucket {
	if kvlayout.IsRootKey(key) {
		return tx.Bucket(rootsBucket)
	}
	return tx.Bucket(nodesBucket)
}

// getter reads from the buckets of tx. Values are copied, as bbolt's are only
// valid for the life of the transaction.
func getter(tx *bbolt.Tx) kvlayout.Getter {
	return kvlayout.GetterFunc(func(key []byte) ([]byte, error) {
		v := bucketFor(tx, key).Get(key)
		if v == nil {
			return nil, nil
		}
		return append([]byte{}, v...), nil
	})
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return f(ctx, kvlayout.NewTX(ns, getter(tx)))
	})
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		ktx := kvlayout.NewTX(ns, getter(tx))
		if err := f(ctx, ktx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, w := range ktx.Writes() {
			b := bucketFor(tx, w.Key)
			var err error
			if w.Value == nil {
				err = b.Delete(w.Key)
			} else {
				err = b.Put(w.Key, w.Value)
			}
			if err != nil {
				return fmt.Errorf("bolt: write %x: %w", w.Key, err)
			}
		}
		return nil
	})
}

