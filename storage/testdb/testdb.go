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

// Package testdb gives tests throwaway MySQL databases. Tests that need one
// call SkipIfNoMySQL first, so that they pass on machines without MySQL.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// URIEnv is the environment variable holding the DSN of the MySQL server
// used by tests. The database name of the DSN is ignored.
const URIEnv = "TEST_MYSQL_URI"

const (
	defaultURI = "root@tcp(127.0.0.1)/"
	// minFDs is the open file limit wanted by tests going through many
	// connections.
	minFDs = 2048
)

var dbCount int64

// config returns the configuration of the test server, connected to the
// named database.
func config(name string) (*mysql.Config, error) {
	uri := os.Getenv(URIEnv)
	if uri == "" {
		uri = defaultURI
	}
	cfg, err := mysql.ParseDSN(uri)
	if err != nil {
		return nil, fmt.Errorf("testdb: %s: %w", URIEnv, err)
	}
	cfg.DBName = name
	return cfg, nil
}

// ping tells whether the test server answers.
func ping(ctx context.Context) error {
	cfg, err := config("")
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// SkipIfNoMySQL skips the test unless the test server answers.
func SkipIfNoMySQL(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ping(ctx); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
}

// raiseFDLimit raises the soft limit on open files to n, or to the hard
// limit if that is lower. It never lowers the limit.
func raiseFDLimit(n uint64) error {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return err
	}
	if n > lim.Max {
		n = lim.Max
	}
	if lim.Cur >= n {
		return nil
	}
	lim.Cur = n
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)
}

// NewDB creates an empty database with a unique name, and drops it when the
// test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	if err := raiseFDLimit(minFDs); err != nil {
		klog.Warningf("testdb: raising the open file limit: %v", err)
	}
	server, err := config("")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := sql.Open("mysql", server.FormatDSN())
	if err != nil {
		t.Fatalf("testdb: open server: %v", err)
	}
	name := fmt.Sprintf("mssmt_%d_%d", time.Now().UnixNano(), atomic.AddInt64(&dbCount, 1))
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		admin.Close()
		t.Fatalf("testdb: create database %s: %v", name, err)
	}

	cfg, err := config(name)
	if err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		t.Fatalf("testdb: open %s: %v", name, err)
	}
	t.Cleanup(func() {
		db.Close()
		defer admin.Close()
		if _, err := admin.ExecContext(context.Background(), "DROP DATABASE "+name); err != nil {
			klog.Warningf("testdb: drop database %s: %v", name, err)
		}
	})
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("testdb: ping %s: %v", name, err)
	}
	return db
}
