package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Built-in defaults.
const (
	DefaultDataPath = "Smart_Issue_Clusters_and_Tags.xlsx"
	DefaultDBPath   = "~/.issuelens/views.db"
	DefaultAddr     = "127.0.0.1:8501"
	DefaultScope    = "filtered"
)

// DefaultClusterDescriptions describe the clusters produced by the upstream
// clustering run the dashboard was built for.
var DefaultClusterDescriptions = map[int]string{
	0: "Access/user request-related issues",
	1: "Workflow or environment issues (e.g. GuidingCare, PROD)",
	2: "Script/assessment-related problems",
	3: "Complaints or documentation",
	4: "Member data, test plans, ID management",
}

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath  string
	CLIDataPath string
	CLIDBPath   string
	CLIAddr     string
	CLIScope    string
	CLISheet    string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DataPath ResolvedValue `json:"data_path"`
	Sheet    ResolvedValue `json:"sheet"`
	DBPath   ResolvedValue `json:"db_path"`
	Addr     ResolvedValue `json:"addr"`
	Scope    ResolvedValue `json:"aggregate_scope"`

	Clusters       map[int]string `json:"clusters"`
	ClustersSource ValueSource    `json:"clusters_source"`
}

type fileConfig struct {
	DataPath string            `yaml:"data_path"`
	Sheet    string            `yaml:"sheet"`
	DBPath   string            `yaml:"db_path"`
	Addr     string            `yaml:"addr"`
	Scope    string            `yaml:"aggregate_scope"`
	Clusters map[string]string `yaml:"clusters"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".issuelens", "config.yaml")
}

// ResolveConfig resolves every setting in order built-in default, config
// file, environment, CLI flag; later sources win.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:     path,
		DataPath:       defaultValue(DefaultDataPath),
		DBPath:         defaultValue(DefaultDBPath),
		Addr:           defaultValue(DefaultAddr),
		Scope:          defaultValue(DefaultScope),
		Clusters:       copyClusters(DefaultClusterDescriptions),
		ClustersSource: SourceDefault,
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DataPath, cfg.DataPath, SourceConfig, path)
		apply(&out.Sheet, cfg.Sheet, SourceConfig, path)
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Addr, cfg.Addr, SourceConfig, path)
		apply(&out.Scope, cfg.Scope, SourceConfig, path)

		if len(cfg.Clusters) > 0 {
			clusters, err := parseClusters(cfg.Clusters)
			if err != nil {
				return out, fmt.Errorf("parsing %s: %w", path, err)
			}
			out.Clusters = clusters
			out.ClustersSource = SourceConfig
		}
	}

	applyEnv(&out.DataPath, "ISSUELENS_DATA")
	applyEnv(&out.Sheet, "ISSUELENS_SHEET")
	applyEnv(&out.DBPath, "ISSUELENS_DB")
	applyEnv(&out.Addr, "ISSUELENS_ADDR")
	applyEnv(&out.Scope, "ISSUELENS_SCOPE")

	apply(&out.DataPath, opts.CLIDataPath, SourceCLI, "--data")
	apply(&out.Sheet, opts.CLISheet, SourceCLI, "--sheet")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Addr, opts.CLIAddr, SourceCLI, "--addr")
	apply(&out.Scope, opts.CLIScope, SourceCLI, "--scope")

	out.DataPath.Value = expandUserPath(out.DataPath.Value)
	if out.DBPath.Value != "" && out.DBPath.Value != ":memory:" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// ClusterIDs returns the described cluster ids in ascending order.
func (r ResolvedConfig) ClusterIDs() []int {
	ids := make([]int, 0, len(r.Clusters))
	for id := range r.Clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ClusterMarkdown renders the cluster descriptions as a markdown list.
func (r ResolvedConfig) ClusterMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Cluster Descriptions\n\n")
	for _, id := range r.ClusterIDs() {
		fmt.Fprintf(&sb, "- **Cluster %d**: %s\n", id, r.Clusters[id])
	}
	return sb.String()
}

func parseClusters(raw map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("cluster id %q is not an integer", k)
		}
		out[id] = strings.TrimSpace(v)
	}
	return out, nil
}

func copyClusters(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func defaultValue(v string) ResolvedValue {
	return ResolvedValue{Value: v, Source: SourceDefault, From: "built-in default"}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
