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

package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/request"
)

// WebhookSink posts audit records to an external HTTP endpoint. Delivery runs
// in a goroutine; failures fall back to the process log.
type WebhookSink struct {
	url     string
	headers map[string]string
	timeout time.Duration
}

// NewWebhookSink builds a webhook sink for the given endpoint.
func NewWebhookSink(url string, headers map[string]string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, headers: headers, timeout: timeout}
}

type webhookPayload struct {
	Context Context      `json:"context"`
	Record  OperationLog `json:"record"`
}

func (s *WebhookSink) LogOperation(_ context.Context, auditCtx Context, record OperationLog) {
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	go func() {
		if err := s.deliver(auditCtx, record); err != nil {
			logFields(auditCtx, record).WithError(err).Error("audit record delivery failed")
		}
	}()
}

func (s *WebhookSink) deliver(auditCtx Context, record OperationLog) error {
	payload, err := request.ToJsonReq(webhookPayload{Context: auditCtx, Record: record})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrAuditSinkFailure, "Failed to encode audit record", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, payload)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrAuditSinkFailure, "Failed to build audit request", err)
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := request.Call(req, s.timeout, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrAuditSinkFailure, "Failed to deliver audit record", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apierror.NewAPIError(apierror.ErrAuditSinkFailure,
			fmt.Sprintf("Audit sink returned status %d", resp.StatusCode), nil)
	}
	return nil
}
