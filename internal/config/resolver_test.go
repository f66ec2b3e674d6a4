package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `data_path: /data/from-config.xlsx
db_path: /data/views.db
addr: 0.0.0.0:9000
aggregate_scope: cluster
sheet: Issues
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ISSUELENS_DATA", "/data/from-env.csv")
	t.Setenv("ISSUELENS_ADDR", ":7000")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath:  cfgPath,
		CLIDataPath: "/data/from-cli.xlsx",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DataPath.Source != SourceCLI || resolved.DataPath.Value != "/data/from-cli.xlsx" {
		t.Fatalf("expected data path from cli, got %+v", resolved.DataPath)
	}
	if resolved.Addr.Source != SourceEnv || resolved.Addr.Value != ":7000" {
		t.Fatalf("expected addr from env, got %+v", resolved.Addr)
	}
	if resolved.Scope.Source != SourceConfig || resolved.Scope.Value != "cluster" {
		t.Fatalf("expected scope from config, got %+v", resolved.Scope)
	}
	if resolved.Sheet.Value != "Issues" {
		t.Fatalf("expected sheet from config, got %+v", resolved.Sheet)
	}
}

func TestResolveConfig_DefaultsWithoutFile(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.DataPath.Value != DefaultDataPath || resolved.DataPath.Source != SourceDefault {
		t.Fatalf("unexpected default data path: %+v", resolved.DataPath)
	}
	if resolved.Scope.Value != DefaultScope {
		t.Fatalf("unexpected default scope: %+v", resolved.Scope)
	}
	if resolved.ClustersSource != SourceDefault || len(resolved.Clusters) != 5 {
		t.Fatalf("expected five default cluster descriptions, got %v", resolved.Clusters)
	}
	if strings.HasPrefix(resolved.DBPath.Value, "~") {
		t.Fatalf("expected ~ to be expanded, got %q", resolved.DBPath.Value)
	}
}

func TestResolveConfig_ClusterDescriptionsFromFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `clusters:
  0: Onboarding
  7: Billing disputes
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.ClustersSource != SourceConfig {
		t.Fatalf("expected clusters from config, got %s", resolved.ClustersSource)
	}
	ids := resolved.ClusterIDs()
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 7 {
		t.Fatalf("unexpected cluster ids: %v", ids)
	}
	md := resolved.ClusterMarkdown()
	if !strings.Contains(md, "**Cluster 7**: Billing disputes") {
		t.Fatalf("unexpected markdown: %s", md)
	}
}

func TestResolveConfig_BadClusterID(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("clusters:\n  first: Onboarding\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Fatal("expected error for non-integer cluster id")
	}
}

func TestResolveConfig_InvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("data_path: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Fatal("expected parse error")
	}
}
