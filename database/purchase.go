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
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

// CreatePurchase commits a purchase, its funding capital entry and its initial
// RAW stock row as one transaction. Either all three rows exist afterwards or
// none do, which is what makes whole-operation retries safe.
func (d Datasource) CreatePurchase(ctx context.Context, purchase *model.Purchase, funding *model.CapitalEntry, blockNegative bool, lockTimeoutSec int) (*model.Purchase, error) {
	ctx, span := otel.Tracer("Purchases").Start(ctx, "Creating purchase with side effects")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin purchase transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	purchaseNumber, err := d.NextSequenceNumberInTx(ctx, tx, "purchase", lockTimeoutSec)
	if err != nil {
		return nil, err
	}
	purchase.PurchaseNumber = purchaseNumber

	if funding != nil {
		funding.Reference = purchase.PurchaseID
		if _, err := d.RecordCapitalEntryInTx(ctx, tx, funding, blockNegative, lockTimeoutSec); err != nil {
			return nil, err
		}
	}

	metaDataJSON, err := json.Marshal(purchase.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (purchase_id, purchase_number, supplier_id, reference, quantity, unit_price, amount, currency, status, created_by, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, purchase.PurchaseID, purchase.PurchaseNumber, purchase.SupplierID, purchase.Reference, purchase.Quantity,
		purchase.UnitPrice, purchase.Amount, purchase.Currency, purchase.Status, purchase.CreatedBy,
		purchase.CreatedAt, metaDataJSON)
	if err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Purchase insert lost a write race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record purchase", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO warehouse_stocks (stock_id, purchase_id, lot, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, model.GenerateUUIDWithSuffix("stk"), purchase.PurchaseID, model.LotRaw, purchase.Quantity, model.StockAvailable, time.Now())
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record initial stock", err)
	}

	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Purchase transaction lost a commit race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit purchase transaction", err)
	}
	return purchase, nil
}

// PurchaseExistsByRef checks whether a purchase was already committed under a
// caller-supplied reference. Orchestrators use this as the idempotency probe
// before redoing a composite create after a transient conflict.
func (d Datasource) PurchaseExistsByRef(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM purchases WHERE reference = $1)
	`, reference).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check if purchase exists", err)
	}
	return exists, nil
}

// GetPurchase retrieves a purchase by its id.
func (d Datasource) GetPurchase(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT purchase_id, purchase_number, supplier_id, reference, quantity, unit_price, amount, currency, status, created_by, created_at, meta_data
		FROM purchases
		WHERE purchase_id = $1
	`, purchaseID)

	purchase := &model.Purchase{}
	var metaDataJSON []byte
	err := row.Scan(&purchase.PurchaseID, &purchase.PurchaseNumber, &purchase.SupplierID, &purchase.Reference,
		&purchase.Quantity, &purchase.UnitPrice, &purchase.Amount, &purchase.Currency, &purchase.Status,
		&purchase.CreatedBy, &purchase.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Purchase with ID '%s' not found", purchaseID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchase", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &purchase.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}
	return purchase, nil
}

// GetPurchaseByRef retrieves a purchase by its caller-supplied reference. A
// retried create recovers the committed row through this, since the reference
// is the key that survives across attempts.
func (d Datasource) GetPurchaseByRef(ctx context.Context, reference string) (*model.Purchase, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT purchase_id, purchase_number, supplier_id, reference, quantity, unit_price, amount, currency, status, created_by, created_at, meta_data
		FROM purchases
		WHERE reference = $1
	`, reference)

	purchase := &model.Purchase{}
	var metaDataJSON []byte
	err := row.Scan(&purchase.PurchaseID, &purchase.PurchaseNumber, &purchase.SupplierID, &purchase.Reference,
		&purchase.Quantity, &purchase.UnitPrice, &purchase.Amount, &purchase.Currency, &purchase.Status,
		&purchase.CreatedBy, &purchase.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Purchase with reference '%s' not found", reference), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchase", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &purchase.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}
	return purchase, nil
}

// FilterPurchaseStock splits a purchase's RAW lot into CLEAN and NON_CLEAN
// lots. The per-purchase mutex plus the row lock on the RAW lot serialize two
// passes over the same purchase; passes over different purchases never touch
// the same keys and proceed in parallel.
func (d Datasource) FilterPurchaseStock(ctx context.Context, purchaseID string, clean, nonClean decimal.Decimal, lockTimeoutSec int) (*model.FilterResult, error) {
	ctx, span := otel.Tracer("Purchases").Start(ctx, "Filtering purchase stock")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin filter transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := d.acquireTxMutex(ctx, tx, model.ResourceMutexName("filter_operation", purchaseID), lockTimeoutSec); err != nil {
		return nil, err
	}

	var stockID string
	var rawQuantity decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT stock_id, quantity
		FROM warehouse_stocks
		WHERE purchase_id = $1 AND lot = 'RAW' AND status = 'AVAILABLE'
		FOR UPDATE
	`, purchaseID).Scan(&stockID, &rawQuantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No available raw stock for purchase '%s'", purchaseID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock raw stock", err)
	}

	if clean.Add(nonClean).GreaterThan(rawQuantity) {
		return nil, apierror.NewAPIError(apierror.ErrBusinessRuleViolation,
			fmt.Sprintf("Filter outputs %s exceed raw input %s", clean.Add(nonClean).String(), rawQuantity.String()), nil)
	}

	result := &model.FilterResult{
		PurchaseID:       purchaseID,
		InputQuantity:    rawQuantity,
		CleanQuantity:    clean,
		NonCleanQuantity: nonClean,
		CleanStockID:     model.GenerateUUIDWithSuffix("stk"),
		NonCleanStockID:  model.GenerateUUIDWithSuffix("stk"),
	}

	now := time.Now()
	for _, lot := range []struct {
		stockID  string
		lot      string
		quantity decimal.Decimal
	}{
		{result.CleanStockID, model.LotClean, clean},
		{result.NonCleanStockID, model.LotNonClean, nonClean},
	} {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO warehouse_stocks (stock_id, purchase_id, lot, quantity, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, lot.stockID, purchaseID, lot.lot, lot.quantity, model.StockAvailable, now)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record filtered stock", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE warehouse_stocks
		SET status = 'SPLIT'
		WHERE stock_id = $1
	`, stockID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark raw stock as split", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = 'FILTERED'
		WHERE purchase_id = $1
	`, purchaseID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark purchase as filtered", err)
	}

	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Filter transaction lost a commit race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit filter transaction", err)
	}
	return result, nil
}

// CreateSaleOrder commits a sale order and reserves its stock in one
// transaction. Reservation uses a row lock on the stock row only; unrelated
// stock rows stay free, so orders never contend on a global mutex.
func (d Datasource) CreateSaleOrder(ctx context.Context, order *model.SaleOrder, lockTimeoutSec int) (*model.SaleOrder, error) {
	ctx, span := otel.Tracer("Sale orders").Start(ctx, "Creating sale order")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin sale order transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	orderNumber, err := d.NextSequenceNumberInTx(ctx, tx, "sale_order", lockTimeoutSec)
	if err != nil {
		return nil, err
	}
	order.OrderNumber = orderNumber

	var available decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT quantity
		FROM warehouse_stocks
		WHERE stock_id = $1 AND lot = 'CLEAN' AND status = 'AVAILABLE'
		FOR UPDATE
	`, order.StockID).Scan(&available)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No available clean stock '%s'", order.StockID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock stock for reservation", err)
	}

	if order.Quantity.GreaterThan(available) {
		return nil, apierror.NewAPIError(apierror.ErrBusinessRuleViolation,
			fmt.Sprintf("Order quantity %s exceeds available stock %s", order.Quantity.String(), available.String()), nil)
	}

	remaining := available.Sub(order.Quantity)
	status := model.StockAvailable
	if remaining.IsZero() {
		status = model.StockReserved
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE warehouse_stocks
		SET quantity = $2, status = $3
		WHERE stock_id = $1
	`, order.StockID, remaining, status)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reserve stock", err)
	}

	metaDataJSON, err := json.Marshal(order.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sale_orders (sale_order_id, order_number, customer_id, reference, stock_id, quantity, unit_price, amount, currency, status, created_by, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, order.SaleOrderID, order.OrderNumber, order.CustomerID, order.Reference, order.StockID, order.Quantity,
		order.UnitPrice, order.Amount, order.Currency, order.Status, order.CreatedBy, order.CreatedAt, metaDataJSON)
	if err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Sale order insert lost a write race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record sale order", err)
	}

	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Sale order transaction lost a commit race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit sale order transaction", err)
	}
	return order, nil
}

// SaleOrderExistsByRef is the idempotency probe for sale order retries.
func (d Datasource) SaleOrderExistsByRef(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM sale_orders WHERE reference = $1)
	`, reference).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check if sale order exists", err)
	}
	return exists, nil
}
