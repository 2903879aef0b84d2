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

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

// ApprovalStore is the slice of the datasource the DB-backed workflow needs.
type ApprovalStore interface {
	RecordApprovalRequest(ctx context.Context, request *model.ApprovalRequest, lockTimeoutSec int) (*model.ApprovalRequest, error)
	GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error)
	ConsumeApproval(ctx context.Context, approvalID, operationID string) error
}

// PolicyFunc decides whether an operation requires approval. The default
// policy requires approval for every operation in the critical set.
type PolicyFunc func(check Check) bool

// Store implements Service against the local approval tables. Consumption is
// a single state-guarded UPDATE, so two racing consumers see exactly one win.
type Store struct {
	store          ApprovalStore
	policy         PolicyFunc
	lockTimeoutSec int
}

// NewStore builds a DB-backed workflow service. A nil policy means every
// operation requires approval, which is the safe default.
func NewStore(store ApprovalStore, policy PolicyFunc, lockTimeoutSec int) *Store {
	if policy == nil {
		policy = func(Check) bool { return true }
	}
	return &Store{store: store, policy: policy, lockTimeoutSec: lockTimeoutSec}
}

func (s *Store) RequiresApproval(_ context.Context, check Check) (Decision, error) {
	if !s.policy(check) {
		return Decision{}, nil
	}
	return Decision{Required: true, EstimatedWait: DefaultEstimatedWait}, nil
}

func (s *Store) CreateApprovalRequest(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalRequest, error) {
	if request.ApprovalID == "" {
		request.ApprovalID = model.GenerateUUIDWithSuffix("apr")
	}
	if request.Status == "" {
		request.Status = model.ApprovalPending
	}
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = time.Now()
	}
	if request.EntityID == "" {
		entityID, err := model.ExtractEntityID(request.OperationType, request.OperationData)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Cannot derive approval entity binding", err)
		}
		request.EntityID = entityID
	}
	if err := request.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid approval request", err)
	}
	return s.store.RecordApprovalRequest(ctx, request, s.lockTimeoutSec)
}

func (s *Store) ValidateApprovalRequest(ctx context.Context, approvalID string, check Check) (Validation, error) {
	approval, err := s.store.GetApprovalByID(ctx, approvalID)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return Validation{Reason: fmt.Sprintf("approval request %s not found", approvalID)}, nil
		}
		return Validation{}, err
	}

	if approval.Status != model.ApprovalApproved {
		return Validation{Reason: fmt.Sprintf("approval request is in %s status, not approved", approval.Status)}, nil
	}
	if approval.OperationType != check.OperationType {
		return Validation{Reason: fmt.Sprintf("approval covers operation type %s, not %s", approval.OperationType, check.OperationType)}, nil
	}

	entityID, err := model.ExtractEntityID(check.OperationType, check.OperationData)
	if err != nil {
		return Validation{Reason: fmt.Sprintf("cannot derive entity binding: %v", err)}, nil
	}
	if entityID != approval.EntityID {
		return Validation{Reason: fmt.Sprintf("approval is bound to entity %s, operation targets %s", approval.EntityID, entityID)}, nil
	}

	if approval.Currency != check.Currency {
		return Validation{Reason: fmt.Sprintf("approval is denominated in %s, operation in %s", approval.Currency, check.Currency)}, nil
	}
	if !model.AmountsMatch(approval.Amount, check.Amount) {
		return Validation{Reason: fmt.Sprintf("approved amount %s does not match operation amount %s", approval.Amount, check.Amount)}, nil
	}

	return Validation{Valid: true}, nil
}

func (s *Store) ConsumeApprovalRequest(ctx context.Context, approvalID string, check Check) error {
	if check.OperationID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Consumption requires an operation id", nil)
	}
	return s.store.ConsumeApproval(ctx, approvalID, check.OperationID)
}

func (s *Store) GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error) {
	return s.store.GetApprovalByID(ctx, approvalID)
}
