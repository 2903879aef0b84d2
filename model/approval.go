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
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// OperationType classifies a state-changing operation for approval policy purposes.
type OperationType string

const (
	OpCapitalEntry        OperationType = "capital_entry"
	OpPurchase            OperationType = "purchase"
	OpSaleOrder           OperationType = "sale_order"
	OpFinancialAdjustment OperationType = "financial_adjustment"
	OpUserRoleChange      OperationType = "user_role_change"
	OpSystemSettingChange OperationType = "system_setting_change"

	// Operation types eligible for internal bypass with a verified service
	// credential. These never overlap with the critical set above.
	OpStockRecount   OperationType = "stock_recount"
	OpReportSnapshot OperationType = "report_snapshot"
)

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalConsumed ApprovalStatus = "consumed"
)

// ApprovalRequest tracks a single-use authorization for a critical operation.
// OperationData is an immutable snapshot of the operation taken at submission;
// the guard re-derives the entity binding from it at validation time.
type ApprovalRequest struct {
	ID              int64                  `json:"-"`
	ApprovalID      string                 `json:"approval_id"`
	RequestNumber   string                 `json:"request_number"`
	OperationType   OperationType          `json:"operation_type"`
	OperationData   map[string]interface{} `json:"operation_data"`
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	EntityID        string                 `json:"entity_id"`
	RequestedBy     string                 `json:"requested_by"`
	Status          ApprovalStatus         `json:"status"`
	CurrentApprover string                 `json:"current_approver,omitempty"`
	TotalSteps      int                    `json:"total_steps"`
	OperationID     string                 `json:"operation_id,omitempty"`
	SubmittedAt     time.Time              `json:"submitted_at"`
	ConsumedAt      *time.Time             `json:"consumed_at,omitempty"`
}

// Validate checks the fields required before an approval request is recorded.
func (r *ApprovalRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ApprovalID, validation.Required),
		validation.Field(&r.OperationType, validation.Required),
		validation.Field(&r.OperationData, validation.Required),
		validation.Field(&r.EntityID, validation.Required),
		validation.Field(&r.RequestedBy, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.In(ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalConsumed)),
	)
}

// EntityIDExtractor derives the entity an operation is bound to from the
// operation's data snapshot. Each critical operation type registers one, so the
// guard never grows a type switch as operation types are added.
type EntityIDExtractor func(operationData map[string]interface{}) (string, error)

var (
	extractorMu sync.RWMutex
	extractors  = map[OperationType]EntityIDExtractor{}
)

// RegisterEntityIDExtractor binds an extractor to an operation type. Later
// registrations replace earlier ones, which keeps tests free to override.
func RegisterEntityIDExtractor(op OperationType, fn EntityIDExtractor) {
	extractorMu.Lock()
	defer extractorMu.Unlock()
	extractors[op] = fn
}

// ExtractEntityID resolves the subject entity id for an operation type from its
// data snapshot using the registered extractor table.
func ExtractEntityID(op OperationType, operationData map[string]interface{}) (string, error) {
	extractorMu.RLock()
	fn, ok := extractors[op]
	extractorMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no entity extractor registered for operation type %s", op)
	}
	return fn(operationData)
}

func stringField(field string) EntityIDExtractor {
	return func(operationData map[string]interface{}) (string, error) {
		value, ok := operationData[field].(string)
		if !ok || value == "" {
			return "", fmt.Errorf("operation data missing %s", field)
		}
		return value, nil
	}
}

func init() {
	RegisterEntityIDExtractor(OpPurchase, stringField("supplier_id"))
	RegisterEntityIDExtractor(OpSaleOrder, stringField("customer_id"))
	RegisterEntityIDExtractor(OpSystemSettingChange, stringField("setting_key"))
	RegisterEntityIDExtractor(OpCapitalEntry, stringField("reference"))
	RegisterEntityIDExtractor(OpFinancialAdjustment, stringField("adjustment_target"))
	RegisterEntityIDExtractor(OpUserRoleChange, stringField("user_id"))
}
