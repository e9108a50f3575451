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

// Package postgresql provides a TreeStorage in a PostgreSQL database.
package postgresql

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage/sqlstore"
	"k8s.io/klog/v2"
)

//go:embed schema/storage.sql
var schema string

const (
	selectNodeSQL = "SELECT l_hash_key, r_hash_key, key, value, sum FROM mssmt_nodes " +
		"WHERE hash_key = $1 AND namespace = $2"
	insertNodeSQL = "INSERT INTO mssmt_nodes " +
		"(hash_key, l_hash_key, r_hash_key, key, value, sum, namespace) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT DO NOTHING"
	selectRootSQL = "SELECT r.root_hash, n.sum FROM mssmt_roots r " +
		"LEFT JOIN mssmt_nodes n ON n.hash_key = r.root_hash AND n.namespace = r.namespace " +
		"WHERE r.namespace = $1"
	upsertRootSQL = "INSERT INTO mssmt_roots (root_hash, namespace) VALUES ($1, $2) " +
		"ON CONFLICT (namespace) DO UPDATE SET root_hash = EXCLUDED.root_hash"
	deleteRootSQL = "DELETE FROM mssmt_roots WHERE namespace = $1"

	maxAttempts = 3
)

// OpenDB opens a database connection pool for all PostgreSQL-based storage implementations.
func OpenDB(dbURL string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(context.TODO(), dbURL)
	if err != nil {
		// Don't log uri as it could contain credentials
		klog.Warningf("Could not open PostgreSQL database, check config: %s", err)
		return nil, err
	}

	return db, nil
}

// CreateTables creates the tables of the store in db if missing.
func CreateTables(ctx context.Context, db *pgxpool.Pool) error {
	// Without arguments, pgx sends the script over the simple protocol, which
	// runs several statements.
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgresql: create tables: %w", err)
	}
	return nil
}

// TreeStorage is a mssmt.TreeStorage in a PostgreSQL database.
type TreeStorage struct {
	db *pgxpool.Pool
}

// New returns a TreeStorage over db, which must hold the tables created by
// CreateTables.
func New(db *pgxpool.Pool) *TreeStorage {
	return &TreeStorage{db: db}
}

func (s *TreeStorage) run(ctx context.Context, opts pgx.TxOptions, f func(pgx.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.db, opts, f)
		if err == nil || attempt >= maxAttempts || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		klog.V(1).Infof("postgresql: retrying transaction after attempt %d: %v", attempt, err)
	}
}

// ReadOnlyTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadOnlyTransaction(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	return s.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return f(ctx, &treeTX{tx: tx, ns: ns})
	})
}

// ReadWriteTransaction implements mssmt.TreeStorage.
func (s *TreeStorage) ReadWriteTransaction(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	return s.run(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return f(ctx, &treeTX{tx: tx, ns: ns})
	})
}

type treeTX struct {
	tx pgx.Tx
	ns string
}

func (t *treeTX) GetNode(ctx context.Context, h mssmt.NodeHash) (mssmt.Node, error) {
	var c sqlstore.NodeColumns
	err := t.tx.QueryRow(ctx, selectNodeSQL, h[:], t.ns).Scan(&c.Left, &c.Right, &c.Key, &c.Value, &c.Sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", mssmt.ErrNodeNotFound, h)
	}
	if err != nil {
		klog.Warningf("postgresql: failed to read node %s: %v", h, err)
		return nil, err
	}
	return sqlstore.DecodeNode(h, c)
}

func (t *treeTX) GetRoot(ctx context.Context) (*mssmt.Root, error) {
	var hash []byte
	var sum *int64
	err := t.tx.QueryRow(ctx, selectRootSQL, t.ns).Scan(&hash, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		klog.Warningf("postgresql: failed to read root of %q: %v", t.ns, err)
		return nil, err
	}
	return sqlstore.DecodeRoot(hash, sum)
}

func (t *treeTX) PutNode(ctx context.Context, n mssmt.Node) error {
	args, err := sqlstore.InsertArgs(n, t.ns)
	if err != nil {
		return fmt.Errorf("postgresql: %w", err)
	}
	if _, err := t.tx.Exec(ctx, insertNodeSQL, args...); err != nil {
		klog.Warningf("postgresql: failed to insert node %s: %v", n.NodeHash(), err)
		return err
	}
	return nil
}

func (t *treeTX) SetRoot(ctx context.Context, r *mssmt.Root) error {
	var err error
	if r == nil {
		_, err = t.tx.Exec(ctx, deleteRootSQL, t.ns)
	} else {
		_, err = t.tx.Exec(ctx, upsertRootSQL, r.Hash[:], t.ns)
	}
	if err != nil {
		klog.Warningf("postgresql: failed to set root of %q: %v", t.ns, err)
	}
	return err
}
