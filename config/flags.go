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

// Package config loads flag values from files, so that storage providers and
// binaries configured by flags can keep their settings in one place.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-shellwords"
)

// ParseFlagFile parses a set of flags from a file at the provided
// path. Re-parses the command line after parsing the flags in the file
// so that flags provided on the command line take precedence over
// flags provided in the file.
//
// Files ending in .toml hold one key per flag. Other files hold flags as
// they would be written on a command line, with environment variables
// expanded.
func ParseFlagFile(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	args, err := FileArgs(path, string(file))
	if err != nil {
		return err
	}
	return parseFlags(flag.CommandLine, args, os.Args[1:])
}

// FileArgs returns the command line arguments given by the contents of the
// file at path.
func FileArgs(path, contents string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return tomlArgs(contents)
	}
	return shellArgs(contents)
}

func parseFlags(fs *flag.FlagSet, fileArgs, cliArgs []string) error {
	if err := fs.Parse(fileArgs); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("config: unexpected arguments in flag file: %q", rest)
	}
	// Parse the command line again so that its flags override the file's.
	return fs.Parse(cliArgs)
}

func shellArgs(contents string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = true
	return p.Parse(contents)
}

func tomlArgs(contents string) ([]string, error) {
	var values map[string]interface{}
	if _, err := toml.Decode(contents, &values); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var args []string
	for _, name := range names {
		vals, ok := values[name].([]interface{})
		if !ok {
			vals = []interface{}{values[name]}
		}
		for _, v := range vals {
			switch v.(type) {
			case string, bool, int64, float64:
				args = append(args, fmt.Sprintf("--%s=%v", name, v))
			default:
				return nil, fmt.Errorf("config: flag %q has unsupported value of type %T", name, v)
			}
		}
	}
	return args, nil
}
