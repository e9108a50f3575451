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

package leveldb

import (
	"flag"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/storage"
	"k8s.io/klog/v2"
)

var (
	leveldbPath = flag.String("leveldb_path", "mssmt.leveldb", "Directory of the goleveldb database")
	leveldbSync = flag.Bool("leveldb_sync", true, "Whether commits wait for the goleveldb data to reach the disk")
)

func init() {
	if err := storage.RegisterProvider("leveldb", newLevelDBStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider leveldb: %v", err)
	}
}

type leveldbProvider struct {
	ts *TreeStorage
}

func newLevelDBStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	ts, err := OpenFile(*leveldbPath, *leveldbSync)
	if err != nil {
		return nil, err
	}
	return &leveldbProvider{ts: ts}, nil
}

func (p *leveldbProvider) TreeStorage() mssmt.TreeStorage {
	return p.ts
}

func (p *leveldbProvider) Close() error {
	return p.ts.Close()
}
