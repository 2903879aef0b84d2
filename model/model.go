/*
Copyright 2025 Vantage ERP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountTolerance is the maximum difference allowed when comparing an
// approval's bound amount against the amount of the operation it authorizes.
var AmountTolerance = decimal.NewFromFloat(0.01)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// MutexKey derives a deterministic signed 64-bit key from a composite lock
// name such as "capital_balance_operations" or "filter_operation_<purchaseID>".
// The key space is what the database advisory-lock primitive accepts, so every
// process that hashes the same name contends on the same lock.
func MutexKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// ResourceMutexName builds the composite lock name for an operation scoped to
// a single resource instance, e.g. ResourceMutexName("filter_operation", purchaseID).
func ResourceMutexName(operation, resourceID string) string {
	return fmt.Sprintf("%s_%s", operation, resourceID)
}

// AmountsMatch reports whether two monetary amounts agree within AmountTolerance.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}
