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

// Package workflow is the client side of the approval workflow service. Two
// implementations exist: a Store backed by the local approval tables, which is
// what keeps consumption a single guarded row update, and an HTTP Client for
// deployments where approvals live in a separate service.
package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vantage-erp/vantage/model"
)

// DefaultEstimatedWait is reported to callers when the policy source does not
// supply a wait estimate of its own.
const DefaultEstimatedWait = 15 * time.Minute

// Check carries everything the workflow service needs to screen one operation:
// its classification, its data snapshot, and the idempotent operation id the
// caller will execute under.
type Check struct {
	OperationType model.OperationType    `json:"operation_type"`
	OperationData map[string]interface{} `json:"operation_data"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	UserID        string                 `json:"user_id"`
	OperationID   string                 `json:"operation_id"`
}

// Decision is the policy answer for one operation.
type Decision struct {
	Required      bool          `json:"required"`
	EstimatedWait time.Duration `json:"estimated_wait"`
}

// Validation is the outcome of matching an approval request against the
// operation presenting it. An invalid result carries the reason verbatim so
// the guard can surface it to the caller.
type Validation struct {
	Valid  bool   `json:"is_valid"`
	Reason string `json:"reason,omitempty"`
}

// Service is the approval workflow contract the guard depends on.
type Service interface {
	// RequiresApproval asks policy whether the operation needs an approval
	// before it may execute.
	RequiresApproval(ctx context.Context, check Check) (Decision, error)

	// CreateApprovalRequest submits a new approval request for the operation.
	CreateApprovalRequest(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalRequest, error)

	// ValidateApprovalRequest verifies that the approval exists, is approved,
	// and is bound to the same operation type, entity, currency and amount as
	// the check.
	ValidateApprovalRequest(ctx context.Context, approvalID string, check Check) (Validation, error)

	// ConsumeApprovalRequest atomically transitions the approval to consumed,
	// bound to the check's operation id. A second consumption attempt fails.
	ConsumeApprovalRequest(ctx context.Context, approvalID string, check Check) error

	// GetApprovalByID fetches an approval request by its id.
	GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error)
}
