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
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/vantage-erp/vantage/internal/audit"
	"github.com/vantage-erp/vantage/internal/workflow"
	"github.com/vantage-erp/vantage/model"
)

// MockWorkflow is a testify mock of the approval workflow service.
type MockWorkflow struct {
	mock.Mock
}

func (m *MockWorkflow) RequiresApproval(ctx context.Context, check workflow.Check) (workflow.Decision, error) {
	args := m.Called(ctx, check)
	return args.Get(0).(workflow.Decision), args.Error(1)
}

func (m *MockWorkflow) CreateApprovalRequest(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockWorkflow) ValidateApprovalRequest(ctx context.Context, approvalID string, check workflow.Check) (workflow.Validation, error) {
	args := m.Called(ctx, approvalID, check)
	return args.Get(0).(workflow.Validation), args.Error(1)
}

func (m *MockWorkflow) ConsumeApprovalRequest(ctx context.Context, approvalID string, check workflow.Check) error {
	args := m.Called(ctx, approvalID, check)
	return args.Error(0)
}

func (m *MockWorkflow) GetApprovalByID(ctx context.Context, approvalID string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

// RecordingSink captures audit records in memory for assertions.
type RecordingSink struct {
	mu      sync.Mutex
	records []audit.OperationLog
}

func (s *RecordingSink) LogOperation(_ context.Context, _ audit.Context, record audit.OperationLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

// Records returns a snapshot of the captured audit records.
func (s *RecordingSink) Records() []audit.OperationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.OperationLog(nil), s.records...)
}

// LastRecord returns the most recent audit record, if any.
func (s *RecordingSink) LastRecord() (audit.OperationLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return audit.OperationLog{}, false
	}
	return s.records[len(s.records)-1], true
}
