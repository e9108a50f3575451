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

package cache

import (
	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/monitoring"
	"github.com/sumtree/sumtree/storage"
)

type cachedProvider struct {
	storage.Provider
	c *NodeCache
}

// WrapProvider returns a provider whose TreeStorage caches up to size nodes
// of the TreeStorage of p.
func WrapProvider(p storage.Provider, size int, mf monitoring.MetricFactory) storage.Provider {
	return &cachedProvider{Provider: p, c: New(p.TreeStorage(), size, mf)}
}

func (p *cachedProvider) TreeStorage() mssmt.TreeStorage {
	return p.c
}
