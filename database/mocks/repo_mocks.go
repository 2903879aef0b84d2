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
package mocks

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/vantage-erp/vantage/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Capital ledger methods

func (m *MockDataSource) RecordCapitalEntry(ctx context.Context, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error) {
	args := m.Called(ctx, entry, blockNegative, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CapitalEntry), args.Error(1)
}

func (m *MockDataSource) RecordCapitalEntryInTx(ctx context.Context, tx *sql.Tx, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error) {
	args := m.Called(ctx, tx, entry, blockNegative, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CapitalEntry), args.Error(1)
}

func (m *MockDataSource) GetCapitalBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDataSource) GetCapitalEntry(ctx context.Context, entryID string) (*model.CapitalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CapitalEntry), args.Error(1)
}

func (m *MockDataSource) GetCapitalEntries(ctx context.Context, limit, offset int) ([]*model.CapitalEntry, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CapitalEntry), args.Error(1)
}

func (m *MockDataSource) HasReversal(ctx context.Context, entryID string) (bool, error) {
	args := m.Called(ctx, entryID)
	return args.Bool(0), args.Error(1)
}

// Approval request methods

func (m *MockDataSource) RecordApprovalRequest(ctx context.Context, request *model.ApprovalRequest, lockTimeoutSec int) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, request, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockDataSource) GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockDataSource) UpdateApprovalStatus(ctx context.Context, approvalID string, status model.ApprovalStatus) error {
	args := m.Called(ctx, approvalID, status)
	return args.Error(0)
}

func (m *MockDataSource) ConsumeApproval(ctx context.Context, approvalID, operationID string) error {
	args := m.Called(ctx, approvalID, operationID)
	return args.Error(0)
}

// Purchase methods

func (m *MockDataSource) CreatePurchase(ctx context.Context, purchase *model.Purchase, funding *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.Purchase, error) {
	args := m.Called(ctx, purchase, funding, blockNegative, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockDataSource) PurchaseExistsByRef(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetPurchase(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockDataSource) GetPurchaseByRef(ctx context.Context, reference string) (*model.Purchase, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockDataSource) FilterPurchaseStock(ctx context.Context, purchaseID string, clean, nonClean decimal.Decimal, lockTimeoutSec int) (*model.FilterResult, error) {
	args := m.Called(ctx, purchaseID, clean, nonClean, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FilterResult), args.Error(1)
}

// Sale order methods

func (m *MockDataSource) CreateSaleOrder(ctx context.Context, order *model.SaleOrder, lockTimeoutSec int) (*model.SaleOrder, error) {
	args := m.Called(ctx, order, lockTimeoutSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SaleOrder), args.Error(1)
}

func (m *MockDataSource) SaleOrderExistsByRef(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

// Sequence methods

func (m *MockDataSource) NextSequenceNumberInTx(ctx context.Context, tx *sql.Tx, entityClass string, lockTimeoutSec int) (string, error) {
	args := m.Called(ctx, tx, entityClass, lockTimeoutSec)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) PeekNextSequenceNumber(ctx context.Context, entityClass string, lockTimeoutSec int) (string, error) {
	args := m.Called(ctx, entityClass, lockTimeoutSec)
	return args.String(0), args.Error(1)
}
