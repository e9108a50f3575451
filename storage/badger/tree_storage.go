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

// Package badger provides a TreeStorage kept in a Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/kvlayout"
	"k8s.io/klog/v2"
)

// klogger routes Badger's logs to klog.
type klogger struct{}

func (klogger) Errorf(format string, args ...interface{})   { klog.Errorf("badger: "+format, args...) }
func (klogger) Warningf(format string, args ...interface{}) { klog.Warningf("badger: "+format, args...) }
func (klogger) Infof(format string, args ...interface{})    { klog.V(1).Infof("badger: "+format, args...) }
func (klogger) Debugf(format string, args ...interface{})   { klog.V(4).Infof("badger: "+format, args...) }

// TreeStorage is a mssmt.TreeStorage over a Badger database.
type TreeStorage struct {
	db *badger.DB
	// writeMu serializes the read-write transactions, which would otherwise
	// conflict on the root key.
	writeMu sync.Mutex
}

// Open opens, or creates, the database in the directory at path.
func Open(path string) (*TreeStorage, error) {
	return open(badger.DefaultOptions(path))
}

// OpenInMemory returns a storage held in memory, for tests.
func OpenInMemory() (*TreeStorage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*TreeStorage, error) {
	db, err := badger.Open(opts.WithLogger(klogger{}))
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", opts.Dir, err)
	}
	return &TreeStorage{db: db}, nil
}

// Close closes the database.
func (s *TreeStorage) Close() error {
	return s.db.Close()
}

func getter(txn *badger.Txn) kvlayout.Getter {
	return kvlayout.GetterFunc(func(key []byte) ([]byte, error) {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return item.ValueCopy(nil)
	})
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return f(ctx, kvlayout.NewTX(ns, getter(txn)))
	})
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		tx := kvlayout.NewTX(ns, getter(txn))
		if err := f(ctx, tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, w := range tx.Writes() {
			var err error
			if w.Value == nil {
				err = txn.Delete(w.Key)
			} else {
				err = txn.Set(w.Key, w.Value)
			}
			if err != nil {
				return fmt.Errorf("badger: write %x: %w", w.Key, err)
			}
		}
		return nil
	})
}
