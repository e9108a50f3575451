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

// Package sqlstore provides a TreeStorage over a database/sql database with
// the mssmt_nodes and mssmt_roots tables. Dialects supply the statements.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"k8s.io/klog/v2"
)

// Statements are the SQL statements of a dialect.
type Statements struct {
	// SelectNode takes (hash_key, namespace), and returns (l_hash_key,
	// r_hash_key, key, value, sum).
	SelectNode string
	// InsertNode takes (hash_key, l_hash_key, r_hash_key, key, value, sum,
	// namespace). It does nothing if the node exists, or fails with an error
	// that Options.Duplicate accepts.
	InsertNode string
	// SelectRoot takes (namespace), and returns (root_hash, sum) where sum is
	// NULL if the root node is missing.
	SelectRoot string
	// UpsertRoot takes (root_hash, namespace).
	UpsertRoot string
	// DeleteRoot takes (namespace).
	DeleteRoot string
}

// Options configure a TreeStorage.
type Options struct {
	// ReadOnly are the options of read-only transactions.
	ReadOnly *sql.TxOptions
	// ReadWrite are the options of read-write transactions.
	ReadWrite *sql.TxOptions
	// Retryable tells whether a failed transaction may be run again.
	Retryable func(error) bool
	// MaxAttempts bounds how many times a transaction runs. Zero means once.
	MaxAttempts int
	// Duplicate tells whether an InsertNode error means the node exists.
	Duplicate func(error) bool
}

// TreeStorage is a mssmt.TreeStorage over a SQL database.
type TreeStorage struct {
	db    *sql.DB
	stmts Statements
	opts  Options
}

// New returns a TreeStorage over db, which must hold the tables.
func New(db *sql.DB, stmts Statements, opts Options) *TreeStorage {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &TreeStorage{db: db, stmts: stmts, opts: opts}
}

// DB returns the database of the storage.
func (s *TreeStorage) DB() *sql.DB {
	return s.db
}

// run runs f in a transaction, and commits it if f succeeds. Failures that
// the dialect deems retryable run f again in a new transaction.
func (s *TreeStorage) run(ctx context.Context, txOpts *sql.TxOptions, f func(*sql.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = s.runOnce(ctx, txOpts, f); err == nil {
			return nil
		}
		if attempt >= s.opts.MaxAttempts || s.opts.Retryable == nil || !s.opts.Retryable(err) || ctx.Err() != nil {
			return err
		}
		klog.V(1).Infof("sqlstore: retrying transaction after attempt %d: %v", attempt, err)
	}
}

func (s *TreeStorage) runOnce(ctx context.Context, txOpts *sql.TxOptions, f func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, txOpts)
	if err != nil {
		klog.Warningf("sqlstore: could not start transaction: %v", err)
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	if err := f(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			klog.Warningf("sqlstore: rollback error: %v", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		klog.Warningf("sqlstore: commit error: %v", err)
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	return s.run(ctx, s.opts.ReadOnly, func(tx *sql.Tx) error {
		return f(ctx, &treeTX{s: s, tx: tx, ns: ns})
	})
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	return s.run(ctx, s.opts.ReadWrite, func(tx *sql.Tx) error {
		return f(ctx, &treeTX{s: s, tx: tx, ns: ns})
	})
}

type treeTX struct {
	s  *TreeStorage
	tx *sql.Tx
	ns string
}

func (t *treeTX) GetNode(ctx context.Context, h mssmt.NodeHash) (mssmt.Node, error) {
	var c NodeColumns
	err := t.tx.QueryRowContext(ctx, t.s.stmts.SelectNode, h[:], t.ns).Scan(&c.Left, &c.Right, &c.Key, &c.Value, &c.Sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", mssmt.ErrNodeNotFound, h)
	}
	if err != nil {
		klog.Warningf("sqlstore: failed to read node %s: %v", h, err)
		return nil, err
	}
	return DecodeNode(h, c)
}

func (t *treeTX) GetRoot(ctx context.Context) (*mssmt.Root, error) {
	var hash []byte
	var sum sql.NullInt64
	err := t.tx.QueryRowContext(ctx, t.s.stmts.SelectRoot, t.ns).Scan(&hash, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		klog.Warningf("sqlstore: failed to read root of %q: %v", t.ns, err)
		return nil, err
	}
	if !sum.Valid {
		return DecodeRoot(hash, nil)
	}
	return DecodeRoot(hash, &sum.Int64)
}

func (t *treeTX) PutNode(ctx context.Context, n mssmt.Node) error {
	h := n.NodeHash()
	args, err := InsertArgs(n, t.ns)
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, t.s.stmts.InsertNode, args...); err != nil {
		if t.s.opts.Duplicate != nil && t.s.opts.Duplicate(err) {
			return nil
		}
		klog.Warningf("sqlstore: failed to insert node %s: %v", h, err)
		return err
	}
	return nil
}

func (t *treeTX) SetRoot(ctx context.Context, r *mssmt.Root) error {
	var err error
	if r == nil {
		_, err = t.tx.ExecContext(ctx, t.s.stmts.DeleteRoot, t.ns)
	} else {
		_, err = t.tx.ExecContext(ctx, t.s.stmts.UpsertRoot, r.Hash[:], t.ns)
	}
	if err != nil {
		klog.Warningf("sqlstore: failed to set root of %q: %v", t.ns, err)
	}
	return err
}
