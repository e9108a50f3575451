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

// Package leveldb provides a TreeStorage kept in a goleveldb database.
// Reads run on database snapshots, and the writes of a transaction are
// applied as one batch.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/kvlayout"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"k8s.io/klog/v2"
)

// TreeStorage is a mssmt.TreeStorage over a goleveldb database.
type TreeStorage struct {
	db   *leveldb.DB
	sync bool
	// writeMu serializes the read-write transactions.
	writeMu sync.Mutex
}

// OpenFile opens, or creates, the database in the directory at path. If sync
// is set, commits wait for the data to reach the disk.
func OpenFile(path string, sync bool) (*TreeStorage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	klog.V(1).Infof("leveldb: opened %s", path)
	return &TreeStorage{db: db, sync: sync}, nil
}

// OpenMemory returns a storage held in memory, for tests.
func OpenMemory() (*TreeStorage, error) {
	db, err := leveldb.Open(lstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open memory storage: %w", err)
	}
	return &TreeStorage{db: db}, nil
}

// Close closes the database.
func (s *TreeStorage) Close() error {
	return s.db.Close()
}

// snapshotGetter reads from a database snapshot.
func snapshotGetter(snap *leveldb.Snapshot) kvlayout.Getter {
	return kvlayout.GetterFunc(func(key []byte) ([]byte, error) {
		v, err := snap.Get(key, nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return v, err
	})
}

func (s *TreeStorage) snapshot(ctx context.Context, ns string) (*kvlayout.TX, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("leveldb: snapshot: %w", err)
	}
	return kvlayout.NewTX(ns, snapshotGetter(snap)), snap.Release, nil
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	tx, release, err := s.snapshot(ctx, ns)
	if err != nil {
		return err
	}
	defer release()
	return f(ctx, tx)
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, release, err := s.snapshot(ctx, ns)
	if err != nil {
		return err
	}
	defer release()
	if err := f(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, w := range tx.Writes() {
		if w.Value == nil {
			batch.Delete(w.Key)
		} else {
			batch.Put(w.Key, w.Value)
		}
	}
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: s.sync}); err != nil {
		return fmt.Errorf("leveldb: write batch of %d: %w", batch.Len(), err)
	}
	return nil
}
