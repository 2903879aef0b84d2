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

	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

// RecordApprovalRequest persists a new approval request with its request
// number assigned in the same transaction.
func (d Datasource) RecordApprovalRequest(ctx context.Context, request *model.ApprovalRequest, lockTimeoutSec int) (*model.ApprovalRequest, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin approval transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	requestNumber, err := d.NextSequenceNumberInTx(ctx, tx, "approval", lockTimeoutSec)
	if err != nil {
		return nil, err
	}
	request.RequestNumber = requestNumber

	operationDataJSON, err := json.Marshal(request.OperationData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal operation data", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO approval_requests (approval_id, request_number, operation_type, operation_data, amount, currency, entity_id, requested_by, status, current_approver, total_steps, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, request.ApprovalID, request.RequestNumber, request.OperationType, operationDataJSON, request.Amount,
		request.Currency, request.EntityID, request.RequestedBy, request.Status, request.CurrentApprover,
		request.TotalSteps, request.SubmittedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record approval request", err)
	}

	if err := tx.Commit(); err != nil {
		if apierror.IsTransientConflict(err) {
			return nil, apierror.NewAPIError(apierror.ErrTransientConflict, "Approval request lost a commit race", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit approval request", err)
	}
	return request, nil
}

// GetApprovalByID retrieves an approval request by its id.
func (d Datasource) GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT approval_id, request_number, operation_type, operation_data, amount, currency, entity_id, requested_by, status, current_approver, total_steps, operation_id, submitted_at, consumed_at
		FROM approval_requests
		WHERE approval_id = $1
	`, approvalID)

	request := &model.ApprovalRequest{}
	var operationDataJSON []byte
	var currentApprover, operationID sql.NullString
	var consumedAt sql.NullTime

	err := row.Scan(&request.ApprovalID, &request.RequestNumber, &request.OperationType, &operationDataJSON,
		&request.Amount, &request.Currency, &request.EntityID, &request.RequestedBy, &request.Status,
		&currentApprover, &request.TotalSteps, &operationID, &request.SubmittedAt, &consumedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Approval request with ID '%s' not found", approvalID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve approval request", err)
	}

	if err := json.Unmarshal(operationDataJSON, &request.OperationData); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal operation data", err)
	}
	request.CurrentApprover = currentApprover.String
	request.OperationID = operationID.String
	if consumedAt.Valid {
		request.ConsumedAt = &consumedAt.Time
	}
	return request, nil
}

// UpdateApprovalStatus moves a pending request to approved or rejected. The
// approval chain itself lives in the workflow service; this is the terminal
// state transition it reports back.
func (d Datasource) UpdateApprovalStatus(ctx context.Context, approvalID string, status model.ApprovalStatus) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = $2
		WHERE approval_id = $1 AND status = 'pending'
	`, approvalID, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update approval status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Approval request '%s' is not pending", approvalID), nil)
	}
	return nil
}

// ConsumeApproval flips an approved request to consumed, binding the operation
// id that executed under it. The status predicate in the UPDATE is what makes
// consumption at-most-once: a raced second caller sees zero rows affected and
// must fail its whole enforce call.
func (d Datasource) ConsumeApproval(ctx context.Context, approvalID, operationID string) error {
	ctx, span := otel.Tracer("Approval guard").Start(ctx, "Consuming approval request")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = 'consumed', operation_id = $2, consumed_at = NOW()
		WHERE approval_id = $1 AND status = 'approved'
	`, approvalID, operationID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to consume approval request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	request, err := d.GetApprovalByID(ctx, approvalID)
	if err != nil {
		return err
	}
	switch request.Status {
	case model.ApprovalConsumed:
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Approval request '%s' already consumed", approvalID), nil)
	default:
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Approval request '%s' is not in approved status", approvalID), nil)
	}
}
