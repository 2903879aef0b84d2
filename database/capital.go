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
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

// RecordCapitalEntry appends an entry to the capital ledger in its own
// transaction: acquire the global balance mutex, recompute the running balance
// from all committed entries, check the non-negative invariant for outgoing
// movements, insert. The mutex rides the transaction, so the check and the
// insert cannot be separated by another writer.
func (d Datasource) RecordCapitalEntry(ctx context.Context, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error) {
	ctx, span := otel.Tracer("Capital ledger").Start(ctx, "Appending capital entry")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin ledger transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entry, err = d.RecordCapitalEntryInTx(ctx, tx, entry, blockNegative, lockTimeoutSec)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Ledger transaction lost a commit race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ledger transaction", err)
	}
	return entry, nil
}

// RecordCapitalEntryInTx is the composable form of RecordCapitalEntry for
// callers that fold the ledger append into a larger unit of work (for example
// a purchase with its funding entry). The caller owns commit and rollback.
func (d Datasource) RecordCapitalEntryInTx(ctx context.Context, tx *sql.Tx, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error) {
	if err := d.acquireTxMutex(ctx, tx, CapitalBalanceMutex, lockTimeoutSec); err != nil {
		return nil, err
	}

	// The running balance is recomputed from the entries themselves rather
	// than read from a cached counter; a counter can drift, the sum cannot.
	var balanceStr string
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount * direction), 0)
		FROM capital_entries
	`).Scan(&balanceStr)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute capital balance", err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to parse capital balance", err)
	}

	prospective := balance.Add(entry.EffectiveAmount())
	if entry.Type == model.CapitalOut && blockNegative && prospective.IsNegative() {
		return nil, apierror.NewAPIError(apierror.ErrBusinessRuleViolation,
			fmt.Sprintf("Capital out of %s %s would drive the balance below zero (current balance %s)",
				entry.PaymentCurrency, entry.Amount.String(), balance.String()), nil)
	}

	sequenceNumber, err := d.NextSequenceNumberInTx(ctx, tx, "capital_entry", lockTimeoutSec)
	if err != nil {
		return nil, err
	}
	entry.SequenceNumber = sequenceNumber

	metaDataJSON, err := json.Marshal(entry.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	var exchangeRate interface{}
	if entry.ExchangeRate != nil {
		exchangeRate = entry.ExchangeRate.String()
	}
	var reverses interface{}
	if entry.ReversesEntryID != "" {
		reverses = entry.ReversesEntryID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO capital_entries (entry_id, sequence_number, type, amount, direction, payment_currency, exchange_rate, reference, reverses_entry_id, description, created_by, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.EntryID, entry.SequenceNumber, entry.Type, entry.Amount, entry.Direction, entry.PaymentCurrency, exchangeRate, entry.Reference, reverses, entry.Description, entry.CreatedBy, entry.CreatedAt, metaDataJSON)
	if err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Capital entry insert lost a write race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record capital entry", err)
	}

	return entry, nil
}

// GetCapitalBalance recomputes the current balance from all committed entries.
func (d Datasource) GetCapitalBalance(ctx context.Context) (decimal.Decimal, error) {
	var balanceStr string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount * direction), 0)
		FROM capital_entries
	`).Scan(&balanceStr)
	if err != nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute capital balance", err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to parse capital balance", err)
	}
	return balance, nil
}

// GetCapitalEntry retrieves one entry by its id.
func (d Datasource) GetCapitalEntry(ctx context.Context, entryID string) (*model.CapitalEntry, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT entry_id, sequence_number, type, amount, direction, payment_currency, exchange_rate, reference, reverses_entry_id, description, created_by, created_at, meta_data
		FROM capital_entries
		WHERE entry_id = $1
	`, entryID)

	entry, err := scanCapitalEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Capital entry with ID '%s' not found", entryID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve capital entry", err)
	}
	return entry, nil
}

// HasReversal reports whether an entry has already been reversed. The ledger
// permits at most one reversal per entry.
func (d Datasource) HasReversal(ctx context.Context, entryID string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM capital_entries WHERE reverses_entry_id = $1)
	`, entryID).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check for existing reversal", err)
	}
	return exists, nil
}

// GetCapitalEntries retrieves committed entries, newest first.
func (d Datasource) GetCapitalEntries(ctx context.Context, limit, offset int) ([]*model.CapitalEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT entry_id, sequence_number, type, amount, direction, payment_currency, exchange_rate, reference, reverses_entry_id, description, created_by, created_at, meta_data
		FROM capital_entries
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve capital entries", err)
	}
	defer rows.Close()

	var entries []*model.CapitalEntry
	for rows.Next() {
		entry, err := scanCapitalEntry(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan capital entry", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over capital entries", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCapitalEntry(row rowScanner) (*model.CapitalEntry, error) {
	entry := &model.CapitalEntry{}
	var metaDataJSON []byte
	var exchangeRate sql.NullString
	var reference sql.NullString
	var reverses sql.NullString

	err := row.Scan(&entry.EntryID, &entry.SequenceNumber, &entry.Type, &entry.Amount, &entry.Direction,
		&entry.PaymentCurrency, &exchangeRate, &reference, &reverses, &entry.Description, &entry.CreatedBy,
		&entry.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}

	if exchangeRate.Valid {
		rate, err := decimal.NewFromString(exchangeRate.String)
		if err != nil {
			return nil, err
		}
		entry.ExchangeRate = &rate
	}
	entry.Reference = reference.String
	entry.ReversesEntryID = reverses.String

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &entry.MetaData); err != nil {
			return nil, err
		}
	}
	return entry, nil
}
