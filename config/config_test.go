package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Test case with empty ProjectName and DataSource DNS
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	// Test case with all required fields filled, expect no error
	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Guard.LockTimeoutSec != 30 {
		t.Errorf("Expected default lock timeout of 30, got %d", cnf.Guard.LockTimeoutSec)
	}
}

func TestGuardDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, op := range []string{"capital_entry", "purchase", "sale_order", "financial_adjustment", "user_role_change", "system_setting_change"} {
		if !cnf.Guard.IsCriticalOperation(op) {
			t.Errorf("Expected %s in default critical operation set", op)
		}
	}

	if !cnf.Guard.NegativeBalanceBlocked() {
		t.Error("Expected negative balance guard enabled by default")
	}

	if cnf.Guard.IsInternalBypassOperation("purchase") {
		t.Error("Critical operation must never appear in the bypass allowlist")
	}
	if !cnf.Guard.IsInternalBypassOperation("stock_recount") {
		t.Error("Expected stock_recount in default bypass allowlist")
	}
}

func TestGuardCriticalSetCannotShrink(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Guard: GuardConfig{
			CriticalOperations: []string{"custom_critical_op"},
		},
	}
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !cnf.Guard.IsCriticalOperation("custom_critical_op") {
		t.Error("Expected configured critical operation to be kept")
	}
	if !cnf.Guard.IsCriticalOperation("purchase") {
		t.Error("Expected default critical operations to survive configuration")
	}
}

func TestGuardBypassCannotContainCritical(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Guard: GuardConfig{
			InternalBypassOperations: []string{"purchase"},
		},
	}
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error when bypass allowlist names a critical operation")
	}
}

func TestGuardSnapshotIsolation(t *testing.T) {
	blocked := true
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Guard: GuardConfig{
			BlockNegativeBalance: &blocked,
		},
	}
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	snapshot := cnf.Guard.Snapshot()
	*cnf.Guard.BlockNegativeBalance = false
	cnf.Guard.CriticalOperations[0] = "mutated"

	if !snapshot.NegativeBalanceBlocked() {
		t.Error("Snapshot must not observe later flag mutations")
	}
	if snapshot.CriticalOperations[0] == "mutated" {
		t.Error("Snapshot must not share the critical operations slice")
	}
}

func TestLoadConfigFromFileAndEnvOverride(t *testing.T) {
	cnf := Configuration{
		ProjectName: "File Project",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432/vantage"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
	content, err := json.Marshal(cnf)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.CreateTemp(t.TempDir(), "vantage*.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VANTAGE_PROJECT_NAME", "Env Project")

	if err := loadConfigFromFile(f.Name()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	loaded, err := Fetch()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ProjectName != "Env Project" {
		t.Errorf("Expected env override to win, got %q", loaded.ProjectName)
	}
	if loaded.DataSource.Dns != "postgres://localhost:5432/vantage" {
		t.Errorf("Unexpected data source DNS %q", loaded.DataSource.Dns)
	}
}
