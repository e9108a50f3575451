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

// Package sqlite provides a TreeStorage in an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/sumtree/sumtree/storage/sqlstore"
	"k8s.io/klog/v2"
)

//go:embed schema/storage.sql
var schema string

const maxAttempts = 5

// Statements are the statements of the SQLite dialect.
var Statements = sqlstore.Statements{
	SelectNode: `SELECT l_hash_key, r_hash_key, key, value, sum FROM mssmt_nodes
		WHERE hash_key = ? AND namespace = ?`,
	InsertNode: `INSERT OR IGNORE INTO mssmt_nodes
		(hash_key, l_hash_key, r_hash_key, key, value, sum, namespace)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	SelectRoot: `SELECT r.root_hash, n.sum FROM mssmt_roots r
		LEFT JOIN mssmt_nodes n ON n.hash_key = r.root_hash AND n.namespace = r.namespace
		WHERE r.namespace = ?`,
	UpsertRoot: `INSERT INTO mssmt_roots (root_hash, namespace) VALUES (?, ?)
		ON CONFLICT(namespace) DO UPDATE SET root_hash = excluded.root_hash`,
	DeleteRoot: `DELETE FROM mssmt_roots WHERE namespace = ?`,
}

// TreeStorage is a mssmt.TreeStorage in an SQLite database.
type TreeStorage struct {
	*sqlstore.TreeStorage
}

// isBusy tells whether err is SQLite failing to take a lock.
func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// Open opens or creates the SQLite database at path, and creates the tables
// if missing.
func Open(ctx context.Context, path string) (*TreeStorage, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := CreateTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	klog.V(1).Infof("sqlite: opened %s", path)
	return New(db), nil
}

// New returns a TreeStorage over db, which must hold the tables.
func New(db *sql.DB) *TreeStorage {
	return &TreeStorage{sqlstore.New(db, Statements, sqlstore.Options{
		Retryable:   isBusy,
		MaxAttempts: maxAttempts,
	})}
}

// CreateTables creates the tables of the store in db if missing.
func CreateTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *TreeStorage) Close() error {
	return s.DB().Close()
}
