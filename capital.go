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

package vantage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/audit"
	"github.com/vantage-erp/vantage/model"
)

// AppendCapitalEntry records one immutable entry in the capital ledger. The
// entry passes the approval guard first, then commits under the global ledger
// mutex with the balance recomputed from all prior entries; a CapitalOut that
// would drive the balance negative while the guard flag is on never persists.
func (v *Vantage) AppendCapitalEntry(ctx context.Context, entry *model.CapitalEntry, op OperationContext) (*model.CapitalEntry, error) {
	ctx, span := otel.Tracer("Ledger").Start(ctx, "Appending capital entry")
	defer span.End()

	if err := entry.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid capital entry", err)
	}

	op.OperationType = model.OpCapitalEntry
	if op.OperationData == nil {
		op.OperationData = map[string]interface{}{"reference": entry.Reference}
	}
	op.Amount = entry.Amount
	op.Currency = entry.PaymentCurrency
	if err := v.EnforceApprovalRequirement(ctx, op); err != nil {
		return nil, err
	}

	guard := v.guardConfig()
	var recorded *model.CapitalEntry
	err := WithConflictRetry(ctx, func() error {
		var err error
		recorded, err = v.datasource.RecordCapitalEntry(ctx, entry, guard.NegativeBalanceBlocked(), guard.LockTimeoutSec)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.logAudit(ctx, audit.Context{UserID: op.UserID, BusinessJustification: op.Justification}, model.OpCapitalEntry, audit.OperationLog{
		EntityType: "capital_entry",
		EntityID:   recorded.EntryID,
		Action:     "append",
		NewValues: map[string]interface{}{
			"sequence_number": recorded.SequenceNumber,
			"type":            recorded.Type,
			"amount":          recorded.Amount.String(),
		},
		FinancialImpact: recorded.EffectiveAmount(),
		Currency:        recorded.PaymentCurrency,
		Severity:        audit.SeverityInfo,
	})
	return recorded, nil
}

// ReverseCapitalEntry corrects a committed entry by appending its paired
// REVERSE entry. The original is never mutated, and an entry can be reversed
// at most once.
func (v *Vantage) ReverseCapitalEntry(ctx context.Context, entryID, reason string, op OperationContext) (*model.CapitalEntry, error) {
	ctx, span := otel.Tracer("Ledger").Start(ctx, "Reversing capital entry")
	defer span.End()

	original, err := v.datasource.GetCapitalEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original.Type == model.CapitalReverse {
		return nil, apierror.NewAPIError(apierror.ErrBusinessRuleViolation, "A reversal entry cannot itself be reversed", nil)
	}

	reversed, err := v.datasource.HasReversal(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Capital entry %s is already reversed", entryID), nil)
	}

	reversal := original.NewReversalEntry(reason, op.UserID)
	if op.Justification == "" {
		op.Justification = reason
	}
	return v.AppendCapitalEntry(ctx, reversal, op)
}

// CapitalBalance recomputes the running balance from all committed entries.
func (v *Vantage) CapitalBalance(ctx context.Context) (decimal.Decimal, error) {
	return v.datasource.GetCapitalBalance(ctx)
}

// GetCapitalEntry retrieves a single ledger entry by id.
func (v *Vantage) GetCapitalEntry(ctx context.Context, entryID string) (*model.CapitalEntry, error) {
	return v.datasource.GetCapitalEntry(ctx, entryID)
}

// CapitalEntries lists committed entries, newest first.
func (v *Vantage) CapitalEntries(ctx context.Context, limit, offset int) ([]*model.CapitalEntry, error) {
	return v.datasource.GetCapitalEntries(ctx, limit, offset)
}
