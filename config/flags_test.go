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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sumtree/sumtree/util/flagsaver"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contents    string
		env         map[string]string
		cliArgs     []string
		expectedErr bool
		expectedA   string
		expectedB   string
		expectedN   int
	}{
		{
			name:      "two flags per line",
			contents:  "-a one -b two",
			expectedA: "one",
			expectedB: "two",
		},
		{
			name:      "one flag per line",
			contents:  "-a one\n-b two",
			expectedA: "one",
			expectedB: "two",
		},
		{
			name:      "one flag per line, with line continuation",
			contents:  "-a one \\\n-b two",
			expectedA: "one",
			expectedB: "two",
		},
		{
			name:      "one flag in file, one flag on command-line",
			contents:  "-a one",
			cliArgs:   []string{"-b", "two"},
			expectedA: "one",
			expectedB: "two",
		},
		{
			name:      "two flags, one overridden by command-line",
			contents:  "-a one\n-b two",
			cliArgs:   []string{"-b", "three"},
			expectedA: "one",
			expectedB: "three",
		},
		{
			name:      "two flags, one using an environment variable",
			contents:  "-a one\n-b $SUMTREE_TEST_VAR",
			env:       map[string]string{"SUMTREE_TEST_VAR": "from env"},
			expectedA: "one",
			expectedB: "from env",
		},
		{
			name:        "three flags, one undefined",
			contents:    "-a one -b two -c three",
			expectedErr: true,
		},
		{
			name:        "positional argument in file",
			contents:    "-a one stray",
			expectedErr: true,
		},
		{
			name:      "toml",
			path:      "flags.toml",
			contents:  "a = \"one\"\nb = \"two\"\nn = 3\n",
			expectedA: "one",
			expectedB: "two",
			expectedN: 3,
		},
		{
			name:      "toml overridden by command-line",
			path:      "flags.TOML",
			contents:  "a = \"one\"\nn = 3\n",
			cliArgs:   []string{"-n", "4"},
			expectedA: "one",
			expectedN: 4,
		},
		{
			name:        "toml table",
			path:        "flags.toml",
			contents:    "[a]\nb = 1\n",
			expectedErr: true,
		},
		{
			name:        "toml syntax error",
			path:        "flags.toml",
			contents:    "a = \n",
			expectedErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(discard{})
			a := fs.String("a", "", "")
			b := fs.String("b", "", "")
			n := fs.Int("n", 0, "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := tc.path
			if path == "" {
				path = "flags.cfg"
			}
			args, err := FileArgs(path, tc.contents)
			if err == nil {
				err = parseFlags(fs, args, tc.cliArgs)
			}
			if gotErr := err != nil; gotErr != tc.expectedErr {
				t.Fatalf("parseFlags()=%v, want err: %v", err, tc.expectedErr)
			}
			if err != nil {
				return
			}
			if *a != tc.expectedA {
				t.Errorf("flag 'a' not properly set: got %q, want %q", *a, tc.expectedA)
			}
			if *b != tc.expectedB {
				t.Errorf("flag 'b' not properly set: got %q, want %q", *b, tc.expectedB)
			}
			if *n != tc.expectedN {
				t.Errorf("flag 'n' not properly set: got %d, want %d", *n, tc.expectedN)
			}
		})
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestTOMLArgs(t *testing.T) {
	got, err := tomlArgs("z = true\nlist = [\"x\", \"y\"]\nd = \"5s\"\nf = 1.5\n")
	if err != nil {
		t.Fatalf("tomlArgs(): %v", err)
	}
	want := []string{"--d=5s", "--f=1.5", "--list=x", "--list=y", "--z=true"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tomlArgs() diff (-want +got):\n%s", diff)
	}
}

var (
	timeout = flag.Duration("config_test_timeout", time.Second, "")
	name    = flag.String("config_test_name", "", "")
)

func TestParseFlagFile(t *testing.T) {
	defer flagsaver.Save().MustRestore()

	path := filepath.Join(t.TempDir(), "flags.toml")
	if err := os.WriteFile(path, []byte("config_test_timeout = \"3s\"\nconfig_test_name = \"file\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{oldArgs[0], "--config_test_name=cli"}

	if err := ParseFlagFile(path); err != nil {
		t.Fatalf("ParseFlagFile(): %v", err)
	}
	if *timeout != 3*time.Second {
		t.Errorf("config_test_timeout=%v, want 3s", *timeout)
	}
	if *name != "cli" {
		t.Errorf("config_test_name=%q, want cli", *name)
	}
}

func TestParseFlagFileMissing(t *testing.T) {
	if err := ParseFlagFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ParseFlagFile(missing) succeeded, want error")
	}
}
