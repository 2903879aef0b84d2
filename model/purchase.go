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

package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

const (
	PurchaseStatusOpen     = "OPEN"
	PurchaseStatusFiltered = "FILTERED"

	SaleOrderStatusOpen = "OPEN"

	LotRaw      = "RAW"
	LotClean    = "CLEAN"
	LotNonClean = "NON_CLEAN"

	StockAvailable = "AVAILABLE"
	StockSplit     = "SPLIT"
	StockReserved  = "RESERVED"
)

// Purchase is a supplier purchase funded from the capital ledger. Its document
// number comes from the purchase entity class and its funding entry, initial
// stock row and the purchase itself commit in one transaction.
type Purchase struct {
	ID             int64                  `json:"-"`
	PurchaseID     string                 `json:"purchase_id"`
	PurchaseNumber string                 `json:"purchase_number"`
	SupplierID     string                 `json:"supplier_id"`
	Reference      string                 `json:"reference"`
	Quantity       decimal.Decimal        `json:"quantity"`
	UnitPrice      decimal.Decimal        `json:"unit_price"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	Status         string                 `json:"status"`
	CreatedBy      string                 `json:"created_by"`
	CreatedAt      time.Time              `json:"created_at"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}

func (p *Purchase) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PurchaseID, validation.Required),
		validation.Field(&p.SupplierID, validation.Required),
		validation.Field(&p.Reference, validation.Required),
		validation.Field(&p.Quantity, validation.By(positiveAmount)),
		validation.Field(&p.Amount, validation.By(positiveAmount)),
		validation.Field(&p.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&p.CreatedBy, validation.Required),
	)
}

// WarehouseStock is one lot of goods tied to a purchase. A filter pass splits a
// RAW lot into CLEAN and NON_CLEAN lots; the RAW lot is marked SPLIT and the
// outputs may never exceed the input quantity.
type WarehouseStock struct {
	ID         int64           `json:"-"`
	StockID    string          `json:"stock_id"`
	PurchaseID string          `json:"purchase_id"`
	Lot        string          `json:"lot"`
	Quantity   decimal.Decimal `json:"quantity"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// FilterResult reports the outcome of a purchase filter pass.
type FilterResult struct {
	PurchaseID       string          `json:"purchase_id"`
	InputQuantity    decimal.Decimal `json:"input_quantity"`
	CleanQuantity    decimal.Decimal `json:"clean_quantity"`
	NonCleanQuantity decimal.Decimal `json:"non_clean_quantity"`
	CleanStockID     string          `json:"clean_stock_id"`
	NonCleanStockID  string          `json:"non_clean_stock_id"`
}

// SaleOrder is a customer order that reserves clean stock when created. Stock
// reservation uses per-row locking, not the global ledger mutex, so orders for
// unrelated stock never contend.
type SaleOrder struct {
	ID          int64                  `json:"-"`
	SaleOrderID string                 `json:"sale_order_id"`
	OrderNumber string                 `json:"order_number"`
	CustomerID  string                 `json:"customer_id"`
	Reference   string                 `json:"reference"`
	StockID     string                 `json:"stock_id"`
	Quantity    decimal.Decimal        `json:"quantity"`
	UnitPrice   decimal.Decimal        `json:"unit_price"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	Status      string                 `json:"status"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	MetaData    map[string]interface{} `json:"meta_data,omitempty"`
}

func (s *SaleOrder) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.SaleOrderID, validation.Required),
		validation.Field(&s.CustomerID, validation.Required),
		validation.Field(&s.Reference, validation.Required),
		validation.Field(&s.StockID, validation.Required),
		validation.Field(&s.Quantity, validation.By(positiveAmount)),
		validation.Field(&s.Amount, validation.By(positiveAmount)),
		validation.Field(&s.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&s.CreatedBy, validation.Required),
	)
}
