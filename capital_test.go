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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/workflow"
	"github.com/vantage-erp/vantage/model"
)

func TestAppendCapitalEntry_RecordsUnderGuardFlags(t *testing.T) {
	v, ds, wf, sink := newTestVantage(t)

	entry := model.NewCapitalEntry(model.CapitalIn, decimal.NewFromInt(5000), "USD", "initial funding", "user_1")
	recorded := *entry
	recorded.SequenceNumber = "CAP-000001"

	wf.On("RequiresApproval", mock.Anything, mock.Anything).Return(workflow.Decision{}, nil)
	ds.On("RecordCapitalEntry", mock.Anything, entry, true, 30).Return(&recorded, nil)

	got, err := v.AppendCapitalEntry(context.Background(), entry, OperationContext{UserID: "user_1"})
	assert.NoError(t, err)
	assert.Equal(t, "CAP-000001", got.SequenceNumber)
	ds.AssertExpectations(t)

	record, ok := sink.LastRecord()
	assert.True(t, ok)
	assert.Equal(t, "append", record.Action)
	assert.True(t, record.FinancialImpact.Equal(decimal.NewFromInt(5000)))
}

func TestAppendCapitalEntry_InvalidEntryNeverReachesGuard(t *testing.T) {
	v, ds, wf, _ := newTestVantage(t)

	entry := model.NewCapitalEntry(model.CapitalOut, decimal.NewFromInt(-10), "USD", "bad amount", "user_1")
	_, err := v.AppendCapitalEntry(context.Background(), entry, OperationContext{UserID: "user_1"})
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
	wf.AssertNotCalled(t, "RequiresApproval", mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "RecordCapitalEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAppendCapitalEntry_RetriesTransientConflicts(t *testing.T) {
	v, ds, wf, _ := newTestVantage(t)

	entry := model.NewCapitalEntry(model.CapitalIn, decimal.NewFromInt(100), "USD", "funding", "user_1")
	recorded := *entry
	recorded.SequenceNumber = "CAP-000002"

	wf.On("RequiresApproval", mock.Anything, mock.Anything).Return(workflow.Decision{}, nil)
	ds.On("RecordCapitalEntry", mock.Anything, entry, true, 30).
		Return(nil, apierror.NewAPIError(apierror.ErrTransientConflict, "lost a race", nil)).Twice()
	ds.On("RecordCapitalEntry", mock.Anything, entry, true, 30).Return(&recorded, nil).Once()

	got, err := v.AppendCapitalEntry(context.Background(), entry, OperationContext{UserID: "user_1"})
	assert.NoError(t, err)
	assert.Equal(t, "CAP-000002", got.SequenceNumber)
	ds.AssertNumberOfCalls(t, "RecordCapitalEntry", 3)
}

func TestAppendCapitalEntry_BusinessViolationIsPermanent(t *testing.T) {
	v, ds, wf, _ := newTestVantage(t)

	entry := model.NewCapitalEntry(model.CapitalOut, decimal.NewFromInt(9999), "USD", "overdraw", "user_1")
	wf.On("RequiresApproval", mock.Anything, mock.Anything).Return(workflow.Decision{}, nil)
	ds.On("RecordCapitalEntry", mock.Anything, entry, true, 30).
		Return(nil, apierror.NewAPIError(apierror.ErrBusinessRuleViolation, "balance would go negative", nil))

	_, err := v.AppendCapitalEntry(context.Background(), entry, OperationContext{UserID: "user_1"})
	assert.True(t, apierror.Is(err, apierror.ErrBusinessRuleViolation))
	ds.AssertNumberOfCalls(t, "RecordCapitalEntry", 1)
}

func TestReverseCapitalEntry_PairsWithOriginal(t *testing.T) {
	v, ds, wf, _ := newTestVantage(t)

	original := model.NewCapitalEntry(model.CapitalOut, decimal.NewFromInt(400), "USD", "purchase funding", "user_1")
	ds.On("GetCapitalEntry", mock.Anything, original.EntryID).Return(original, nil)
	ds.On("HasReversal", mock.Anything, original.EntryID).Return(false, nil)
	wf.On("RequiresApproval", mock.Anything, mock.Anything).Return(workflow.Decision{}, nil)

	var reversal *model.CapitalEntry
	ds.On("RecordCapitalEntry", mock.Anything, mock.AnythingOfType("*model.CapitalEntry"), true, 30).
		Run(func(args mock.Arguments) { reversal = args.Get(1).(*model.CapitalEntry) }).
		Return(&model.CapitalEntry{}, nil)

	_, err := v.ReverseCapitalEntry(context.Background(), original.EntryID, "posted in error", OperationContext{UserID: "user_2"})
	assert.NoError(t, err)
	assert.Equal(t, model.CapitalReverse, reversal.Type)
	assert.Equal(t, original.EntryID, reversal.ReversesEntryID)
	assert.Equal(t, -original.Direction, reversal.Direction)
	assert.Equal(t, "posted in error", reversal.Description)
	assert.True(t, reversal.EffectiveAmount().Add(original.EffectiveAmount()).IsZero())
}

func TestReverseCapitalEntry_SecondReversalConflicts(t *testing.T) {
	v, ds, wf, _ := newTestVantage(t)

	original := model.NewCapitalEntry(model.CapitalOut, decimal.NewFromInt(400), "USD", "purchase funding", "user_1")
	ds.On("GetCapitalEntry", mock.Anything, original.EntryID).Return(original, nil)
	ds.On("HasReversal", mock.Anything, original.EntryID).Return(true, nil)

	_, err := v.ReverseCapitalEntry(context.Background(), original.EntryID, "posted in error", OperationContext{UserID: "user_2"})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	wf.AssertNotCalled(t, "RequiresApproval", mock.Anything, mock.Anything)
}

func TestReverseCapitalEntry_ReversalOfReversalRejected(t *testing.T) {
	v, ds, _, _ := newTestVantage(t)

	original := model.NewCapitalEntry(model.CapitalOut, decimal.NewFromInt(400), "USD", "funding", "user_1")
	reversal := original.NewReversalEntry("posted in error", "user_2")
	ds.On("GetCapitalEntry", mock.Anything, reversal.EntryID).Return(reversal, nil)

	_, err := v.ReverseCapitalEntry(context.Background(), reversal.EntryID, "undo the undo", OperationContext{UserID: "user_3"})
	assert.True(t, apierror.Is(err, apierror.ErrBusinessRuleViolation))
}

func TestCapitalBalance_DelegatesToDatasource(t *testing.T) {
	v, ds, _, _ := newTestVantage(t)
	ds.On("GetCapitalBalance", mock.Anything).Return(decimal.NewFromInt(4600), nil)

	balance, err := v.CapitalBalance(context.Background())
	assert.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(4600)))
}
