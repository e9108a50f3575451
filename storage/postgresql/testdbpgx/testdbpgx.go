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

// Package testdbpgx gives tests throwaway PostgreSQL databases. Tests that
// need one call SkipIfNoPostgreSQL first, so that they pass on machines
// without PostgreSQL.
package testdbpgx

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"k8s.io/klog/v2"
)

// URIEnv is the environment variable holding the URI of the PostgreSQL
// server used by tests. The database of the URI is used to create and drop
// the test databases.
const URIEnv = "TEST_POSTGRESQL_URI"

const defaultURI = "postgresql:///defaultdb?host=localhost&user=postgres&password=postgres"

var dbCount int64

// config returns the pool configuration of the test server, connected to
// the named database, or to the database of the URI if name is empty.
func config(name string) (*pgxpool.Config, error) {
	uri := os.Getenv(URIEnv)
	if uri == "" {
		uri = defaultURI
	}
	cfg, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("testdbpgx: %s: %w", URIEnv, err)
	}
	if name != "" {
		cfg.ConnConfig.Database = name
	}
	return cfg, nil
}

func connect(ctx context.Context, name string) (*pgxpool.Pool, error) {
	cfg, err := config(name)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// SkipIfNoPostgreSQL skips the test unless the test server answers.
func SkipIfNoPostgreSQL(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := connect(ctx, "")
	if err == nil {
		err = db.Ping(ctx)
		db.Close()
	}
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
}

// NewDB creates an empty database with a unique name, and drops it when the
// test ends.
func NewDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	admin, err := connect(ctx, "")
	if err != nil {
		t.Fatalf("testdbpgx: connect to server: %v", err)
	}
	name := fmt.Sprintf("mssmt_%d_%d", time.Now().UnixNano(), atomic.AddInt64(&dbCount, 1))
	ident := pgx.Identifier{name}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		admin.Close()
		t.Fatalf("testdbpgx: create database %s: %v", name, err)
	}

	db, err := connect(ctx, name)
	if err != nil {
		admin.Close()
		t.Fatalf("testdbpgx: connect to %s: %v", name, err)
	}
	t.Cleanup(func() {
		db.Close()
		defer admin.Close()
		if _, err := admin.Exec(context.Background(), "DROP DATABASE "+ident); err != nil {
			klog.Warningf("testdbpgx: drop database %s: %v", name, err)
		}
	})
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("testdbpgx: ping %s: %v", name, err)
	}
	return db
}
