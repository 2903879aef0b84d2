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
	"net/http"
	"time"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/internal/request"
	"github.com/vantage-erp/vantage/model"
)

// Client implements Service over HTTP against a remote approval service.
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient builds an HTTP workflow client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, timeout: timeout}
}

func (c *Client) post(ctx context.Context, path string, payload, response interface{}) (*http.Response, error) {
	body, err := request.ToJsonReq(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	return request.Call(req, c.timeout, response)
}

func (c *Client) RequiresApproval(ctx context.Context, check Check) (Decision, error) {
	var response struct {
		RequiresApproval bool `json:"requires_approval"`
		EstimatedWaitSec int  `json:"estimated_wait_seconds"`
	}
	resp, err := c.post(ctx, "/policy/check", check, &response)
	if err != nil {
		return Decision{}, apierror.NewAPIError(apierror.ErrInternalServer, "Approval policy check failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Decision{}, apierror.NewAPIError(apierror.ErrInternalServer,
			fmt.Sprintf("Approval policy check returned status %d", resp.StatusCode), nil)
	}

	wait := time.Duration(response.EstimatedWaitSec) * time.Second
	if wait == 0 {
		wait = DefaultEstimatedWait
	}
	return Decision{Required: response.RequiresApproval, EstimatedWait: wait}, nil
}

func (c *Client) CreateApprovalRequest(ctx context.Context, req *model.ApprovalRequest) (*model.ApprovalRequest, error) {
	var created model.ApprovalRequest
	resp, err := c.post(ctx, "/approval-requests", req, &created)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Approval request submission failed", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer,
			fmt.Sprintf("Approval request submission returned status %d", resp.StatusCode), nil)
	}
	return &created, nil
}

func (c *Client) ValidateApprovalRequest(ctx context.Context, approvalID string, check Check) (Validation, error) {
	var result Validation
	resp, err := c.post(ctx, fmt.Sprintf("/approval-requests/%s/validate", approvalID), check, &result)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return Validation{Reason: fmt.Sprintf("approval request %s not found", approvalID)}, nil
	}
	if err != nil {
		return Validation{}, apierror.NewAPIError(apierror.ErrInternalServer, "Approval validation failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Validation{}, apierror.NewAPIError(apierror.ErrInternalServer,
			fmt.Sprintf("Approval validation returned status %d", resp.StatusCode), nil)
	}
	return result, nil
}

func (c *Client) ConsumeApprovalRequest(ctx context.Context, approvalID string, check Check) error {
	if check.OperationID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Consumption requires an operation id", nil)
	}

	var response struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason,omitempty"`
	}
	resp, err := c.post(ctx, fmt.Sprintf("/approval-requests/%s/consume", approvalID), check, &response)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Approval consumption failed", err)
	}
	if resp.StatusCode == http.StatusConflict || (resp.StatusCode == http.StatusOK && !response.Success) {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Approval request %s could not be consumed: %s", approvalID, response.Reason), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return apierror.NewAPIError(apierror.ErrInternalServer,
			fmt.Sprintf("Approval consumption returned status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/approval-requests/%s", c.baseURL, approvalID), nil)
	if err != nil {
		return nil, err
	}

	var approval model.ApprovalRequest
	resp, err := request.Call(req, c.timeout, &approval)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Approval request %s not found", approvalID), nil)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Approval lookup failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer,
			fmt.Sprintf("Approval lookup returned status %d", resp.StatusCode), nil)
	}
	return &approval, nil
}
