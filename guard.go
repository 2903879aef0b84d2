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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/audit"
	"github.com/vantage-erp/vantage/internal/workflow"
	"github.com/vantage-erp/vantage/model"
)

// OperationContext describes one state-changing operation presented to the
// guard: its classification, data snapshot, money amounts, the caller, and
// any approval or bypass credentials accompanying it.
type OperationContext struct {
	OperationType     model.OperationType
	OperationData     map[string]interface{}
	Amount            decimal.Decimal
	Currency          string
	UserID            string
	ApprovalRequestID string
	SkipApproval      bool
	ServiceToken      string
	OperationID       string
	Justification     string
	SourceIP          string
}

// EnforceApprovalRequirement is the single choke point every guarded mutation
// passes through. It returns nil to permit the caller to proceed and a typed
// error to block it:
//
//  1. A critical operation presented with skipApproval is always a
//     SecurityViolation, regardless of caller identity.
//  2. A non-critical skipApproval requires membership in the internal bypass
//     allowlist plus a verified, expiring service token.
//  3. A presented approval request is validated against the operation and
//     then consumed atomically; losing the consumption race blocks.
//  4. Otherwise policy decides: not required permits, required fails with
//     ApprovalRequired carrying what the caller needs to file a request.
//
// Every branch emits an audit record. Audit delivery failures never change
// the guard's decision.
func (v *Vantage) EnforceApprovalRequirement(ctx context.Context, op OperationContext) error {
	ctx, span := otel.Tracer("Guard").Start(ctx, "Enforcing approval requirement")
	defer span.End()

	guard := v.guardConfig()
	auditCtx := audit.Context{
		UserID:                op.UserID,
		SourceIP:              op.SourceIP,
		BusinessJustification: op.Justification,
	}
	if op.OperationID == "" {
		op.OperationID = model.GenerateUUIDWithSuffix("op")
	}

	if op.SkipApproval {
		if guard.IsCriticalOperation(string(op.OperationType)) {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_bypass_denied",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				BusinessContext: "bypass attempted on critical operation type",
				Severity:        audit.SeverityCritical,
			})
			return apierror.NewAPIError(apierror.ErrSecurityViolation,
				fmt.Sprintf("Operation type %s is critical and can never bypass approval", op.OperationType), nil)
		}

		if !guard.IsInternalBypassOperation(string(op.OperationType)) {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_bypass_denied",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				BusinessContext: "operation type not in internal bypass allowlist",
				Severity:        audit.SeverityCritical,
			})
			return apierror.NewAPIError(apierror.ErrSecurityViolation,
				fmt.Sprintf("Operation type %s is not eligible for internal bypass", op.OperationType), nil)
		}

		if err := verifyServiceToken(guard.ServiceTokenSecret, string(op.OperationType), op.ServiceToken); err != nil {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_bypass_denied",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				BusinessContext: "service credential rejected",
				Severity:        audit.SeverityCritical,
			})
			return apierror.NewAPIError(apierror.ErrSecurityViolation, "Internal bypass requires a verified service credential", err)
		}

		if op.Justification == "" {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_bypass_denied",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				BusinessContext: "bypass presented without a justification",
				Severity:        audit.SeverityCritical,
			})
			return apierror.NewAPIError(apierror.ErrSecurityViolation, "Internal bypass requires an explicit justification", nil)
		}
		v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
			EntityType:      string(op.OperationType),
			EntityID:        op.entityID(),
			Action:          "approval_bypassed",
			FinancialImpact: op.Amount,
			Currency:        op.Currency,
			BusinessContext: op.Justification,
			Severity:        audit.SeverityElevated,
		})
		return nil
	}

	check := workflow.Check{
		OperationType: op.OperationType,
		OperationData: op.OperationData,
		Amount:        op.Amount,
		Currency:      op.Currency,
		UserID:        op.UserID,
		OperationID:   op.OperationID,
	}

	if op.ApprovalRequestID != "" {
		result, err := v.workflow.ValidateApprovalRequest(ctx, op.ApprovalRequestID, check)
		if err != nil {
			return err
		}
		if !result.Valid {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_rejected",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				BusinessContext: result.Reason,
				Severity:        audit.SeverityElevated,
			})
			return apierror.NewAPIError(apierror.ErrSecurityViolation,
				fmt.Sprintf("Approval request %s does not authorize this operation: %s", op.ApprovalRequestID, result.Reason), nil)
		}

		if err := v.workflow.ConsumeApprovalRequest(ctx, op.ApprovalRequestID, check); err != nil {
			v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
				EntityType:      string(op.OperationType),
				EntityID:        op.entityID(),
				Action:          "approval_consumption_failed",
				FinancialImpact: op.Amount,
				Currency:        op.Currency,
				Severity:        audit.SeverityElevated,
			})
			return err
		}

		v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
			EntityType:      string(op.OperationType),
			EntityID:        op.entityID(),
			Action:          "approval_consumed",
			FinancialImpact: op.Amount,
			Currency:        op.Currency,
			Severity:        audit.SeverityInfo,
		})
		return nil
	}

	decision, err := v.workflow.RequiresApproval(ctx, check)
	if err != nil {
		return err
	}
	if decision.Required {
		v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
			EntityType:      string(op.OperationType),
			EntityID:        op.entityID(),
			Action:          "approval_required",
			FinancialImpact: op.Amount,
			Currency:        op.Currency,
			Severity:        audit.SeverityInfo,
		})
		return apierror.NewAPIError(apierror.ErrApprovalRequired,
			fmt.Sprintf("Operation type %s requires approval before it may execute", op.OperationType),
			map[string]interface{}{
				"operation_type":         op.OperationType,
				"amount":                 op.Amount,
				"currency":               op.Currency,
				"business_justification": op.Justification,
				"estimated_wait":         decision.EstimatedWait.String(),
			})
	}

	v.logAudit(ctx, auditCtx, op.OperationType, audit.OperationLog{
		EntityType:      string(op.OperationType),
		EntityID:        op.entityID(),
		Action:          "approval_not_required",
		FinancialImpact: op.Amount,
		Currency:        op.Currency,
		Severity:        audit.SeverityInfo,
	})
	return nil
}

// entityID resolves the operation's subject entity for audit records. Audit
// never blocks the decision, so extraction failures degrade to empty.
func (op OperationContext) entityID() string {
	entityID, err := model.ExtractEntityID(op.OperationType, op.OperationData)
	if err != nil {
		return ""
	}
	return entityID
}

// SignServiceToken mints an expiring bypass credential for the operation
// type: "<expiry-unix>.<hmac-sha256>". The signature covers both fields, so a
// token cannot be replayed against another operation type or a later expiry.
func SignServiceToken(secret string, operationType string, ttl time.Duration) string {
	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	return expires + "." + serviceTokenMAC(secret, operationType, expires)
}

func serviceTokenMAC(secret, operationType, expires string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(operationType + "." + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyServiceToken(secret, operationType, token string) error {
	if secret == "" {
		return fmt.Errorf("no service token secret configured")
	}
	expires, signature, found := strings.Cut(token, ".")
	if !found {
		return fmt.Errorf("malformed service token")
	}

	expiresUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed service token expiry")
	}
	if time.Now().Unix() > expiresUnix {
		return fmt.Errorf("service token expired")
	}

	expected := serviceTokenMAC(secret, operationType, expires)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("service token signature mismatch")
	}
	return nil
}
