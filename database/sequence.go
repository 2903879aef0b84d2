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

// NextSequenceNumberInTx issues the next formatted document number for an
// entity class inside the caller's transaction. The class mutex serializes
// issuance; the number row commits together with the owning row, so a rolled
// back transaction never burns a number and committed numbers stay gap-free.
//
// The maximal existing value is found by lexicographic ordering, which equals
// numeric ordering because the numeric suffix is zero-padded to a fixed width.
func (d Datasource) NextSequenceNumberInTx(ctx context.Context, tx *sql.Tx, entityClass string, lockTimeoutSec int) (string, error) {
	class, err := model.EntityClassFor(entityClass)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput, "Unknown entity class", err)
	}

	if err := d.acquireTxMutex(ctx, tx, class.MutexName(), lockTimeoutSec); err != nil {
		return "", err
	}

	// Table and column come from the static class registry, never from input.
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s LIKE $1
		ORDER BY %s DESC
		LIMIT 1
	`, class.Column, class.Table, class.Column, class.Column)

	var current int64
	var maxNumber string
	err = tx.QueryRowContext(ctx, query, class.Prefix+"-%").Scan(&maxNumber)
	switch {
	case err == sql.ErrNoRows:
		current = 0
	case err != nil:
		return "", apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("Failed to read max %s number", class.Name), err)
	default:
		current, err = class.Parse(maxNumber)
		if err != nil {
			return "", apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("Malformed %s number in table", class.Name), err)
		}
	}

	next := current + 1
	if next > class.MaxValue() {
		return "", apierror.NewAPIError(apierror.ErrBusinessRuleViolation,
			fmt.Sprintf("Sequence for %s is exhausted at %s", class.Name, class.Format(class.MaxValue())), nil)
	}

	return class.Format(next), nil
}

// PeekNextSequenceNumber previews the next number for an entity class in a
// transaction of its own. The preview is only authoritative while no other
// writer commits a row of the class; writes must issue through
// NextSequenceNumberInTx inside the owning row's transaction.
func (d Datasource) PeekNextSequenceNumber(ctx context.Context, entityClass string, lockTimeoutSec int) (string, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin sequence transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	number, err := d.NextSequenceNumberInTx(ctx, tx, entityClass, lockTimeoutSec)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return "", apierror.NewAPIError(apierror.ErrTransientConflict, "Sequence preview lost a commit race", err)
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit sequence transaction", err)
	}
	return number, nil
}
