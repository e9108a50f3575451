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

// Package testonly holds test helpers for the tree storage backends.
package testonly

import (
	"context"

	"github.com/sumtree/sumtree/merkle/mssmt"
)

// RunOnTX is a helper for mocking out the TreeStorage.ReadWriteTransaction
// method: it runs the transaction body on tx.
func RunOnTX(tx mssmt.TreeTX) func(ctx context.Context, ns string, f mssmt.TreeTXFunc) error {
	return func(ctx context.Context, _ string, f mssmt.TreeTXFunc) error {
		return f(ctx, tx)
	}
}

// RunOnReadOnlyTX is a helper for mocking out the
// TreeStorage.ReadOnlyTransaction method: it runs the transaction body on tx.
func RunOnReadOnlyTX(tx mssmt.ReadOnlyTreeTX) func(ctx context.Context, ns string, f mssmt.ReadOnlyTreeTXFunc) error {
	return func(ctx context.Context, _ string, f mssmt.ReadOnlyTreeTXFunc) error {
		return f(ctx, tx)
	}
}
