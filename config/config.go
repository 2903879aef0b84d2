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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"VANTAGE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"VANTAGE_REDIS_DNS"`
}

type WorkflowConfig struct {
	Url     string `json:"url" envconfig:"VANTAGE_WORKFLOW_URL"`
	Timeout int    `json:"timeout" envconfig:"VANTAGE_WORKFLOW_TIMEOUT"`
}

type AuditSinkConfig struct {
	Url     string            `json:"url" envconfig:"VANTAGE_AUDIT_SINK_URL"`
	Headers map[string]string `json:"headers"`
}

// GuardConfig is the approval-guard policy: which operation types can never
// bypass approval, which narrower set may bypass with a verified service
// credential, and whether the ledger blocks negative balances. Callers take a
// Snapshot per operation so a concurrent config reload can't change the rules
// mid-decision.
type GuardConfig struct {
	BlockNegativeBalance     *bool    `json:"block_negative_balance" envconfig:"VANTAGE_GUARD_BLOCK_NEGATIVE_BALANCE"`
	CriticalOperations       []string `json:"critical_operations"`
	InternalBypassOperations []string `json:"internal_bypass_operations"`
	ServiceTokenSecret       string   `json:"service_token_secret" envconfig:"VANTAGE_GUARD_SERVICE_TOKEN_SECRET"`
	LockTimeoutSec           int      `json:"lock_timeout_sec" envconfig:"VANTAGE_GUARD_LOCK_TIMEOUT_SEC"`
}

// Snapshot returns an immutable copy of the guard policy for one operation.
func (g GuardConfig) Snapshot() GuardConfig {
	snapshot := g
	snapshot.CriticalOperations = append([]string(nil), g.CriticalOperations...)
	snapshot.InternalBypassOperations = append([]string(nil), g.InternalBypassOperations...)
	if g.BlockNegativeBalance != nil {
		blocked := *g.BlockNegativeBalance
		snapshot.BlockNegativeBalance = &blocked
	}
	return snapshot
}

// NegativeBalanceBlocked reports the ledger's non-negative guard flag.
func (g GuardConfig) NegativeBalanceBlocked() bool {
	return g.BlockNegativeBalance == nil || *g.BlockNegativeBalance
}

// IsCriticalOperation reports whether the operation type may never bypass approval.
func (g GuardConfig) IsCriticalOperation(op string) bool {
	for _, critical := range g.CriticalOperations {
		if critical == op {
			return true
		}
	}
	return false
}

// IsInternalBypassOperation reports whether the operation type is eligible for
// internal bypass given a verified service credential.
func (g GuardConfig) IsInternalBypassOperation(op string) bool {
	for _, allowed := range g.InternalBypassOperations {
		if allowed == op {
			return true
		}
	}
	return false
}

type Configuration struct {
	ProjectName string           `json:"project_name" envconfig:"VANTAGE_PROJECT_NAME"`
	DataSource  DataSourceConfig `json:"data_source"`
	Redis       RedisConfig      `json:"redis"`
	Workflow    WorkflowConfig   `json:"workflow"`
	AuditSink   AuditSinkConfig  `json:"audit_sink"`
	Guard       GuardConfig      `json:"guard"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("vantage", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called vantage.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Vantage Core"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Workflow.Url = strings.TrimSpace(cnf.Workflow.Url)
	cnf.AuditSink.Url = strings.TrimSpace(cnf.AuditSink.Url)

	if cnf.Workflow.Timeout == 0 {
		cnf.Workflow.Timeout = 15
	}

	if cnf.Guard.LockTimeoutSec == 0 {
		cnf.Guard.LockTimeoutSec = 30
		log.Printf("Warning: Lock timeout not specified. Setting default value: %d seconds", cnf.Guard.LockTimeoutSec)
	}

	// Approval bypass is categorically forbidden for these operation types.
	// A deployment can extend this list but never shrink it below the default.
	defaultCritical := []string{
		"capital_entry", "purchase", "sale_order",
		"financial_adjustment", "user_role_change", "system_setting_change",
	}
	cnf.Guard.CriticalOperations = mergeOperationLists(defaultCritical, cnf.Guard.CriticalOperations)

	if len(cnf.Guard.InternalBypassOperations) == 0 {
		cnf.Guard.InternalBypassOperations = []string{"stock_recount", "report_snapshot"}
	}
	for _, bypass := range cnf.Guard.InternalBypassOperations {
		if cnf.Guard.IsCriticalOperation(bypass) {
			return errors.New("internal bypass allowlist may not contain critical operation types")
		}
	}

	return nil
}

func mergeOperationLists(defaults, configured []string) []string {
	merged := append([]string(nil), defaults...)
	for _, op := range configured {
		found := false
		for _, existing := range merged {
			if existing == op {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, op)
		}
	}
	return merged
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
