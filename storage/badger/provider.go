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

package badger

import (
	"flag"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/storage"
	"k8s.io/klog/v2"
)

var badgerPath = flag.String("badger_path", "mssmt.badger", "Directory of the Badger database")

func init() {
	if err := storage.RegisterProvider("badger", newBadgerStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider badger: %v", err)
	}
}

type badgerProvider struct {
	ts *TreeStorage
}

func newBadgerStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	ts, err := Open(*badgerPath)
	if err != nil {
		return nil, err
	}
	return &badgerProvider{ts: ts}, nil
}

func (p *badgerProvider) TreeStorage() mssmt.TreeStorage {
	return p.ts
}

func (p *badgerProvider) Close() error {
	return p.ts.Close()
}
