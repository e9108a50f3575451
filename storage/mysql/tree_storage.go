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

// Package mysql provides a TreeStorage in a MySQL database.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sumtree/sumtree/storage/sqlstore"
	"k8s.io/klog/v2"
)

//go:embed schema/storage.sql
var schema string

const maxAttempts = 3

// Statements are the statements of the MySQL dialect.
var Statements = sqlstore.Statements{
	SelectNode: "SELECT l_hash_key, r_hash_key, `key`, value, sum FROM mssmt_nodes " +
		"WHERE hash_key = ? AND namespace = ?",
	InsertNode: "INSERT INTO mssmt_nodes " +
		"(hash_key, l_hash_key, r_hash_key, `key`, value, sum, namespace) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?)",
	SelectRoot: "SELECT r.root_hash, n.sum FROM mssmt_roots r " +
		"LEFT JOIN mssmt_nodes n ON n.hash_key = r.root_hash AND n.namespace = r.namespace " +
		"WHERE r.namespace = ?",
	UpsertRoot: "INSERT INTO mssmt_roots (root_hash, namespace) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE root_hash = VALUES(root_hash)",
	DeleteRoot: "DELETE FROM mssmt_roots WHERE namespace = ?",
}

// TreeStorage is a mssmt.TreeStorage in a MySQL database.
type TreeStorage struct {
	*sqlstore.TreeStorage
}

// strictDSN returns dbURL with the session in strict mode, which rejects
// out of range values instead of truncating them. The driver applies DSN
// parameters to every connection of the pool.
func strictDSN(dbURL string) (string, error) {
	cfg, err := mysql.ParseDSN(dbURL)
	if err != nil {
		return "", err
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	cfg.Params["sql_mode"] = "'STRICT_ALL_TABLES'"
	return cfg.FormatDSN(), nil
}

// OpenDB opens a database connection for all MySQL-based storage implementations.
func OpenDB(dbURL string) (*sql.DB, error) {
	dsn, err := strictDSN(dbURL)
	if err != nil {
		// Don't log uri as it could contain credentials
		klog.Warningf("Could not parse MySQL URI, check config: %s", err)
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		klog.Warningf("Could not open MySQL database, check config: %s", err)
		return nil, err
	}
	return db, nil
}

// CreateTables creates the tables of the store in db if missing.
func CreateTables(ctx context.Context, db *sql.DB) error {
	// The driver runs one statement per call unless multiStatements is set.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: create tables: %w", err)
		}
	}
	return nil
}

// New returns a TreeStorage over db, which must hold the tables created by
// CreateTables.
func New(db *sql.DB) *TreeStorage {
	return &TreeStorage{sqlstore.New(db, Statements, sqlstore.Options{
		ReadOnly:    &sql.TxOptions{ReadOnly: true},
		Retryable:   isRetryable,
		MaxAttempts: maxAttempts,
		Duplicate:   isDuplicateErr,
	})}
}
