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
	"context"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/sumtree/sumtree/merkle/mssmt"
	"github.com/sumtree/sumtree/storage"
	"github.com/sumtree/sumtree/storage/testonly"
	"github.com/sumtree/sumtree/util/flagsaver"
)

func openForTest(t *testing.T, path string) *TreeStorage {
	t.Helper()
	s, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	return s
}

func TestTreeStorage(t *testing.T) {
	testonly.TestTreeStorage(t, func(t *testing.T) mssmt.TreeStorage {
		s := openForTest(t, filepath.Join(t.TempDir(), "mssmt.db"))
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mssmt.db")
	s := openForTest(t, path)
	want, err := mssmt.New(s).Insert(ctx, "ns", testonly.KeyOf(1), []byte("v"), 3)
	if err != nil {
		t.Fatalf("Insert(): %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}

	s = openForTest(t, path)
	defer s.Close()
	got, err := mssmt.New(s).Root(ctx, "ns")
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if got != want {
		t.Errorf("Root() after reopen=%v, want %v", got, want)
	}
}

func TestProvider(t *testing.T) {
	defer flagsaver.Save().MustRestore()
	path := filepath.Join(t.TempDir(), "provider.db")
	if err := flag.Set("bolt_path", path); err != nil {
		t.Fatal(err)
	}
	p, err := storage.NewProvider("bolt", nil)
	if err != nil {
		t.Fatalf("NewProvider(bolt): %v", err)
	}
	defer p.Close()
	if _, err := mssmt.New(p.TreeStorage()).Root(context.Background(), "ns"); err != nil {
		t.Errorf("Root(): %v", err)
	}
}
