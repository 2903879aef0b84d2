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

	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/audit"
	"github.com/vantage-erp/vantage/model"
)

// CreatePurchase runs a guarded composite create: the approval guard first,
// then one transaction holding the purchase number, the purchase row, its
// funding CapitalOut entry and the initial RAW stock row. The whole composite
// is retried on transient conflicts; the purchase reference makes the retry
// idempotent, so a conflict mid-commit can never duplicate composed records.
func (v *Vantage) CreatePurchase(ctx context.Context, purchase *model.Purchase, op OperationContext) (*model.Purchase, error) {
	ctx, span := otel.Tracer("Purchases").Start(ctx, "Creating purchase")
	defer span.End()

	if purchase.PurchaseID == "" {
		purchase.PurchaseID = model.GenerateUUIDWithSuffix("pur")
	}
	if purchase.Status == "" {
		purchase.Status = model.PurchaseStatusOpen
	}
	if err := purchase.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid purchase", err)
	}

	op.OperationType = model.OpPurchase
	if op.OperationData == nil {
		op.OperationData = map[string]interface{}{"supplier_id": purchase.SupplierID}
	}
	op.Amount = purchase.Amount
	op.Currency = purchase.Currency
	if err := v.EnforceApprovalRequirement(ctx, op); err != nil {
		return nil, err
	}

	guard := v.guardConfig()
	funding := model.NewCapitalEntry(model.CapitalOut, purchase.Amount, purchase.Currency,
		fmt.Sprintf("funding for purchase %s", purchase.Reference), purchase.CreatedBy)

	var created *model.Purchase
	err := WithConflictRetry(ctx, func() error {
		exists, err := v.datasource.PurchaseExistsByRef(ctx, purchase.Reference)
		if err != nil {
			return err
		}
		if exists {
			// A prior attempt committed before its result reached us. The
			// reference is the key that survives retries, not the purchase id.
			created, err = v.datasource.GetPurchaseByRef(ctx, purchase.Reference)
			return err
		}

		created, err = v.datasource.CreatePurchase(ctx, purchase, funding, guard.NegativeBalanceBlocked(), guard.LockTimeoutSec)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.logAudit(ctx, audit.Context{UserID: op.UserID, BusinessJustification: op.Justification}, model.OpPurchase, audit.OperationLog{
		EntityType: "purchase",
		EntityID:   created.PurchaseID,
		Action:     "create",
		NewValues: map[string]interface{}{
			"purchase_number": created.PurchaseNumber,
			"supplier_id":     created.SupplierID,
			"quantity":        created.Quantity.String(),
		},
		FinancialImpact: created.Amount.Neg(),
		Currency:        created.Currency,
		Severity:        audit.SeverityInfo,
	})
	return created, nil
}

// CreateSaleOrder runs the guarded order create: approval guard, then one
// transaction assigning the order number and reserving clean stock under a
// row lock. Retried as a whole on transient conflicts, idempotent by the
// order reference.
func (v *Vantage) CreateSaleOrder(ctx context.Context, order *model.SaleOrder, op OperationContext) (*model.SaleOrder, error) {
	ctx, span := otel.Tracer("Sale orders").Start(ctx, "Creating sale order")
	defer span.End()

	if order.SaleOrderID == "" {
		order.SaleOrderID = model.GenerateUUIDWithSuffix("so")
	}
	if order.Status == "" {
		order.Status = model.SaleOrderStatusOpen
	}
	if err := order.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid sale order", err)
	}

	op.OperationType = model.OpSaleOrder
	if op.OperationData == nil {
		op.OperationData = map[string]interface{}{"customer_id": order.CustomerID}
	}
	op.Amount = order.Amount
	op.Currency = order.Currency
	if err := v.EnforceApprovalRequirement(ctx, op); err != nil {
		return nil, err
	}

	guard := v.guardConfig()
	var created *model.SaleOrder
	err := WithConflictRetry(ctx, func() error {
		exists, err := v.datasource.SaleOrderExistsByRef(ctx, order.Reference)
		if err != nil {
			return err
		}
		if exists {
			return apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("Sale order with reference %s already exists", order.Reference), nil)
		}

		created, err = v.datasource.CreateSaleOrder(ctx, order, guard.LockTimeoutSec)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.logAudit(ctx, audit.Context{UserID: op.UserID, BusinessJustification: op.Justification}, model.OpSaleOrder, audit.OperationLog{
		EntityType: "sale_order",
		EntityID:   created.SaleOrderID,
		Action:     "create",
		NewValues: map[string]interface{}{
			"order_number": created.OrderNumber,
			"customer_id":  created.CustomerID,
			"quantity":     created.Quantity.String(),
		},
		FinancialImpact: created.Amount,
		Currency:        created.Currency,
		Severity:        audit.SeverityInfo,
	})
	return created, nil
}

// GetPurchase retrieves a purchase by id.
func (v *Vantage) GetPurchase(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	return v.datasource.GetPurchase(ctx, purchaseID)
}
