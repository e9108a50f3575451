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

package mssmt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSum is returned for a leaf sum that cannot be committed.
	ErrInvalidSum = errors.New("mssmt: invalid sum")
	// ErrSumOverflow is returned when an aggregate sum would exceed MaxSum.
	ErrSumOverflow = errors.New("mssmt: sum overflow")
	// ErrCorruptNode is returned when a stored node does not hash to the hash
	// it was looked up by, or does not fit where it was found.
	ErrCorruptNode = errors.New("mssmt: corrupt node")
	// ErrNodeNotFound is returned by storage for an unknown node hash.
	ErrNodeNotFound = errors.New("mssmt: node not found")
	// ErrPreconditionFailed is returned when a Precondition denies a mutation.
	ErrPreconditionFailed = errors.New("mssmt: precondition failed")
)

// StoreError is a failure of the node storage. A mutation that fails with a
// StoreError leaves the namespace unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("mssmt: storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeError wraps err into a StoreError, unless it already is one or is an
// error of the tree itself.
func storeError(op string, err error) error {
	var se *StoreError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se),
		errors.Is(err, ErrCorruptNode),
		errors.Is(err, ErrSumOverflow),
		errors.Is(err, ErrInvalidSum),
		errors.Is(err, ErrPreconditionFailed):
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// corruptf returns an ErrCorruptNode error for the node with the given hash.
func corruptf(hash NodeHash, depth int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at depth %d: %s", ErrCorruptNode, hash, depth, fmt.Sprintf(format, args...))
}
