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

	"github.com/shopspring/decimal"

	"github.com/vantage-erp/vantage/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	capital   // Capital ledger operations
	approval  // Approval request operations
	purchase  // Purchase and warehouse stock operations
	saleOrder // Sale order operations
	sequence  // Document number issuance
}

// capital defines methods for the append-only capital ledger.
type capital interface {
	RecordCapitalEntry(ctx context.Context, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error)
	RecordCapitalEntryInTx(ctx context.Context, tx *sql.Tx, entry *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.CapitalEntry, error)
	GetCapitalBalance(ctx context.Context) (decimal.Decimal, error)
	GetCapitalEntry(ctx context.Context, entryID string) (*model.CapitalEntry, error)
	GetCapitalEntries(ctx context.Context, limit, offset int) ([]*model.CapitalEntry, error)
	HasReversal(ctx context.Context, entryID string) (bool, error)
}

// approval defines methods for tracked single-use authorizations.
type approval interface {
	RecordApprovalRequest(ctx context.Context, request *model.ApprovalRequest, lockTimeoutSec int) (*model.ApprovalRequest, error)
	GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error)
	UpdateApprovalStatus(ctx context.Context, approvalID string, status model.ApprovalStatus) error
	ConsumeApproval(ctx context.Context, approvalID, operationID string) error
}

// purchase defines methods for purchases and their warehouse stock.
type purchase interface {
	CreatePurchase(ctx context.Context, purchase *model.Purchase, funding *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.Purchase, error)
	PurchaseExistsByRef(ctx context.Context, reference string) (bool, error)
	GetPurchase(ctx context.Context, purchaseID string) (*model.Purchase, error)
	GetPurchaseByRef(ctx context.Context, reference string) (*model.Purchase, error)
	FilterPurchaseStock(ctx context.Context, purchaseID string, clean, nonClean decimal.Decimal, lockTimeoutSec int) (*model.FilterResult, error)
}

// saleOrder defines methods for customer orders and stock reservation.
type saleOrder interface {
	CreateSaleOrder(ctx context.Context, order *model.SaleOrder, lockTimeoutSec int) (*model.SaleOrder, error)
	SaleOrderExistsByRef(ctx context.Context, reference string) (bool, error)
}

// sequence defines document number issuance inside a caller-owned transaction.
type sequence interface {
	NextSequenceNumberInTx(ctx context.Context, tx *sql.Tx, entityClass string, lockTimeoutSec int) (string, error)
	PeekNextSequenceNumber(ctx context.Context, entityClass string, lockTimeoutSec int) (string, error)
}
