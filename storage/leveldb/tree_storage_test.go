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
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage"
	"github.com/sumtree/sumtree/storage/testonly"
	"github.com/sumtree/sumtree/util/flagsaver"
)

func TestTreeStorage(t *testing.T) {
	testonly.TestTreeStorage(t, func(t *testing.T) mssmt.TreeStorage {
		s, err := OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory(): %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db")
	s, err := OpenFile(path, true)
	if err != nil {
		t.Fatalf("OpenFile(): %v", err)
	}
	want, err := mssmt.New(s).Insert(ctx, "ns", testonly.KeyOf(9), []byte("nine"), 9)
	if err != nil {
		t.Fatalf("Insert(): %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}

	if s, err = OpenFile(path, true); err != nil {
		t.Fatalf("OpenFile() again: %v", err)
	}
	defer s.Close()
	leaf, err := mssmt.New(s).Get(ctx, "ns", testonly.KeyOf(9))
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if leaf == nil || string(leaf.Value) != "nine" || leaf.Sum != 9 {
		t.Errorf("Get() after reopen=%v, want nine/9", leaf)
	}
	if got, err := mssmt.New(s).Root(ctx, "ns"); err != nil || got != want {
		t.Errorf("Root() after reopen=%v, %v, want %v", got, err, want)
	}
}

func TestProvider(t *testing.T) {
	defer flagsaver.Save().MustRestore()
	if err := flag.Set("leveldb_path", filepath.Join(t.TempDir(), "provider")); err != nil {
		t.Fatal(err)
	}
	p, err := storage.NewProvider("leveldb", nil)
	if err != nil {
		t.Fatalf("NewProvider(leveldb): %v", err)
	}
	defer p.Close()
	if _, err := mssmt.New(p.TreeStorage()).Root(context.Background(), "ns"); err != nil {
		t.Errorf("Root(): %v", err)
	}
}
