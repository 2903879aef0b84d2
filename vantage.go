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
	"embed"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vantage-erp/vantage/config"
	"github.com/vantage-erp/vantage/database"
	"github.com/vantage-erp/vantage/internal/audit"
	redis_db "github.com/vantage-erp/vantage/internal/redis-db"
	"github.com/vantage-erp/vantage/internal/workflow"
	"github.com/vantage-erp/vantage/model"
)

// Vantage is the service façade for the trading back office: guarded domain
// writes, the capital ledger, sequence issuance, and the stock filter pass.
type Vantage struct {
	datasource database.IDataSource
	workflow   workflow.Service
	audit      audit.Sink
	redis      redis.UniversalClient
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewVantage initializes a Vantage instance with the provided datasource. The
// workflow service and audit sink are chosen from configuration: a remote URL
// selects the HTTP implementation, otherwise the DB-backed store and the
// process-log sink are used.
func NewVantage(db database.IDataSource) (*Vantage, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns, false)
	if err != nil {
		return nil, err
	}

	var workflowService workflow.Service
	if configuration.Workflow.Url != "" {
		workflowService = workflow.NewClient(configuration.Workflow.Url, time.Duration(configuration.Workflow.Timeout)*time.Second)
	} else {
		workflowService = workflow.NewStore(db, func(check workflow.Check) bool {
			cnf, err := config.Fetch()
			if err != nil {
				return true
			}
			return cnf.Guard.IsCriticalOperation(string(check.OperationType))
		}, configuration.Guard.LockTimeoutSec)
	}

	var auditSink audit.Sink
	if configuration.AuditSink.Url != "" {
		auditSink = audit.NewWebhookSink(configuration.AuditSink.Url, configuration.AuditSink.Headers, 10*time.Second)
	} else {
		auditSink = audit.LogSink{}
	}

	return &Vantage{
		datasource: db,
		workflow:   workflowService,
		audit:      auditSink,
		redis:      redisClient.Client(),
	}, nil
}

// guardConfig returns the current guard policy snapshot. Each operation takes
// exactly one snapshot so a config reload cannot change the rules mid-flight.
func (v *Vantage) guardConfig() config.GuardConfig {
	configuration, err := config.Fetch()
	if err != nil {
		return config.GuardConfig{}.Snapshot()
	}
	return configuration.Guard.Snapshot()
}

func (v *Vantage) logAudit(ctx context.Context, auditCtx audit.Context, op model.OperationType, record audit.OperationLog) {
	record.OperationType = op
	if record.Severity == "" {
		record.Severity = audit.SeverityInfo
	}
	v.audit.LogOperation(ctx, auditCtx, record)
}
