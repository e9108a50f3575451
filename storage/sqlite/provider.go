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

package sqlite

import (
	"context"
	"flag"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/storage"
	"k8s.io/klog/v2"
)

var sqlitePath = flag.String("sqlite_path", "mssmt.sqlite", "Path of the SQLite database file")

func init() {
	if err := storage.RegisterProvider("sqlite", newSQLiteStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider sqlite: %v", err)
	}
}

type sqliteProvider struct {
	ts *TreeStorage
}

func newSQLiteStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	ts, err := Open(context.Background(), *sqlitePath)
	if err != nil {
		return nil, err
	}
	return &sqliteProvider{ts: ts}, nil
}

func (p *sqliteProvider) TreeStorage() mssmt.TreeStorage {
	return p.ts
}

func (p *sqliteProvider) Close() error {
	return p.ts.Close()
}
