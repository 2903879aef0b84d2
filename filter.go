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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/audit"
	redlock "github.com/vantage-erp/vantage/internal/lock"
	"github.com/vantage-erp/vantage/model"
)

// FilterPurchase splits a purchase's RAW stock lot into CLEAN and NON_CLEAN
// lots. Two filter passes over the same purchase serialize on the purchase's
// resource lock (redis across processes, advisory lock in the transaction);
// passes over different purchases proceed in parallel. Output quantities must
// not exceed the available raw input.
func (v *Vantage) FilterPurchase(ctx context.Context, purchaseID string, clean, nonClean decimal.Decimal, op OperationContext) (*model.FilterResult, error) {
	ctx, span := otel.Tracer("Purchases").Start(ctx, "Filtering purchase")
	defer span.End()

	if clean.IsNegative() || nonClean.IsNegative() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Filter output quantities cannot be negative", nil)
	}

	guard := v.guardConfig()
	lockTimeout := time.Duration(guard.LockTimeoutSec) * time.Second

	locker := redlock.ForResource(v.redis, "filter_operation", purchaseID)
	if err := locker.WaitLock(ctx, lockTimeout, lockTimeout); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrTransientConflict,
			"Another filter pass holds the purchase lock", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Error("failed to release filter lock: ", err)
		}
	}()

	result, err := v.datasource.FilterPurchaseStock(ctx, purchaseID, clean, nonClean, guard.LockTimeoutSec)
	if err != nil {
		return nil, err
	}

	v.logAudit(ctx, audit.Context{UserID: op.UserID, BusinessJustification: op.Justification}, model.OpStockRecount, audit.OperationLog{
		EntityType: "purchase",
		EntityID:   purchaseID,
		Action:     "filter_stock",
		OldValues:  map[string]interface{}{"raw_quantity": result.InputQuantity.String()},
		NewValues: map[string]interface{}{
			"clean_quantity":     result.CleanQuantity.String(),
			"non_clean_quantity": result.NonCleanQuantity.String(),
		},
		Severity: audit.SeverityInfo,
	})
	return result, nil
}
