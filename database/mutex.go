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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

// The name of the mutex serializing every capital-balance-affecting write.
const CapitalBalanceMutex = "capital_balance_operations"

// acquireTxMutex takes a transaction-scoped advisory lock on the given mutex
// name. The lock is released automatically when the transaction commits or
// rolls back, which is what makes the balance check and the insert one atomic
// unit: no other writer can interleave between them.
//
// A lock_timeout is set first so a stuck holder surfaces as lock_not_available
// (a transient conflict) instead of stalling the caller forever.
func (d Datasource) acquireTxMutex(ctx context.Context, tx *sql.Tx, name string, timeoutSec int) error {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%ds'", timeoutSec))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set lock timeout", err)
	}

	_, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", model.MutexKey(name))
	if err != nil {
		if apierror.IsTransientConflict(err) {
			return apierror.NewAPIError(apierror.ErrTransientConflict, fmt.Sprintf("Timed out waiting for mutex %s", name), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("Failed to acquire mutex %s", name), err)
	}
	return nil
}
