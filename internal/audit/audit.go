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

// Package audit delivers operation audit records to a sink. Delivery is
// fire-and-forget: a sink failure is logged to the fallback channel and never
// changes the business outcome of the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vantage-erp/vantage/model"
)

// Severity grades how sensitive an audited operation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityElevated Severity = "elevated"
	SeverityCritical Severity = "critical"
)

// Context identifies who performed an operation and why.
type Context struct {
	UserID                string `json:"user_id"`
	SourceIP              string `json:"source_ip,omitempty"`
	RequestID             string `json:"request_id,omitempty"`
	BusinessJustification string `json:"business_justification,omitempty"`
}

// OperationLog is one audit record describing a state change.
type OperationLog struct {
	EntityType      string                 `json:"entity_type"`
	EntityID        string                 `json:"entity_id"`
	Action          string                 `json:"action"`
	OperationType   model.OperationType    `json:"operation_type"`
	OldValues       map[string]interface{} `json:"old_values,omitempty"`
	NewValues       map[string]interface{} `json:"new_values,omitempty"`
	FinancialImpact decimal.Decimal        `json:"financial_impact"`
	Currency        string                 `json:"currency,omitempty"`
	BusinessContext string                 `json:"business_context,omitempty"`
	Severity        Severity               `json:"severity"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// Sink receives audit records. Implementations must never block the caller's
// business path and must never surface delivery failures to it.
type Sink interface {
	LogOperation(ctx context.Context, auditCtx Context, record OperationLog)
}

// LogSink writes audit records to the process log. It is the default sink
// when no webhook URL is configured and the fallback when delivery fails.
type LogSink struct{}

func (LogSink) LogOperation(_ context.Context, auditCtx Context, record OperationLog) {
	logFields(auditCtx, record).Info("audit record")
}

func logFields(auditCtx Context, record OperationLog) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"entity_type":      record.EntityType,
		"entity_id":        record.EntityID,
		"action":           record.Action,
		"operation_type":   record.OperationType,
		"financial_impact": record.FinancialImpact.String(),
		"currency":         record.Currency,
		"severity":         record.Severity,
		"user_id":          auditCtx.UserID,
		"justification":    auditCtx.BusinessJustification,
	})
}
