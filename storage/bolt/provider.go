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

package bolt

import (
	"flag"
	"time"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/storage"
	"k8s.io/klog/v2"
)

var (
	boltPath    = flag.String("bolt_path", "mssmt.db", "Path of the bbolt database file")
	boltTimeout = flag.Duration("bolt_timeout", 5*time.Second, "How long to wait for the lock on the bbolt database file")
)

func init() {
	if err := storage.RegisterProvider("bolt", newBoltStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider bolt: %v", err)
	}
}

type boltProvider struct {
	ts *TreeStorage
}

func newBoltStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	ts, err := Open(*boltPath, *boltTimeout)
	if err != nil {
		return nil, err
	}
	return &boltProvider{ts: ts}, nil
}

func (p *boltProvider) TreeStorage() mssmt.TreeStorage {
	return p.ts
}

func (p *boltProvider) Close() error {
	return p.ts.Close()
}
