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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-erp/vantage/internal/apierror"
	"github.com/vantage-erp/vantage/model"
)

func TestClientRequiresApproval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/policy/check", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var check Check
		require.NoError(t, json.NewDecoder(r.Body).Decode(&check))
		assert.Equal(t, model.OpPurchase, check.OperationType)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"requires_approval":      true,
			"estimated_wait_seconds": 600,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	decision, err := client.RequiresApproval(context.Background(), purchaseCheck())
	assert.NoError(t, err)
	assert.True(t, decision.Required)
	assert.Equal(t, 10*time.Minute, decision.EstimatedWait)
}

func TestClientValidate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.ValidateApprovalRequest(context.Background(), "apr_missing", purchaseCheck())
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "not found")
}

func TestClientValidate_InvalidWithReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approval-requests/apr_1/validate", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(Validation{Reason: "approved amount 1000 does not match operation amount 1500"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.ValidateApprovalRequest(context.Background(), "apr_1", purchaseCheck())
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "does not match")
}

func TestClientConsume_SecondConsumerLoses(t *testing.T) {
	consumed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approval-requests/apr_1/consume", r.URL.Path)
		if consumed {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "reason": "already consumed"})
			return
		}
		consumed = true
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	err := client.ConsumeApprovalRequest(context.Background(), "apr_1", purchaseCheck())
	assert.NoError(t, err)

	err = client.ConsumeApprovalRequest(context.Background(), "apr_1", purchaseCheck())
	assert.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}

func TestClientGetApprovalByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/approval-requests/apr_1":
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(approvedPurchaseRequest())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	approval, err := client.GetApprovalByID(context.Background(), "apr_1")
	assert.NoError(t, err)
	assert.Equal(t, "apr_1", approval.ApprovalID)
	assert.Equal(t, model.ApprovalApproved, approval.Status)

	_, err = client.GetApprovalByID(context.Background(), "apr_missing")
	assert.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}
