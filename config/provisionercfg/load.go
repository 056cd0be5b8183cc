package provisionercfg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModuleBranch         = "main"
	DefaultModulePathPrefix     = "modules"
	DefaultMainBranch           = "main"
	DefaultWorkspacesPathPrefix = "terraform/projects"
	DefaultAPIVersion           = "7.1"
	DefaultAutoApproveAttempts  = 5
	DefaultAutoApproveDelay     = time.Second
	DefaultStoreURL             = "memory:"
)

// Load reads a YAML file and returns the decoded Root with defaults applied.
// Relative workDir values are resolved against the file's directory.
func Load(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if cfg.WorkDir != "" && !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(path), cfg.WorkDir)
	}
	return cfg, nil
}

// Parse decodes YAML bytes, rejecting unknown fields, and applies defaults.
func Parse(data []byte) (*Root, error) {
	var cfg Root
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (r *Root) ApplyDefaults() {
	if r.WorkDir == "" {
		r.WorkDir = ".provisioner"
	}
	if r.ModuleRepository.Branch == "" {
		r.ModuleRepository.Branch = DefaultModuleBranch
	}
	if r.ModuleRepository.PathPrefix == "" {
		r.ModuleRepository.PathPrefix = DefaultModulePathPrefix
	}
	ir := &r.InfrastructureRepository
	if ir.MainBranch == "" {
		ir.MainBranch = DefaultMainBranch
	}
	if ir.WorkspacesPathPrefix == "" {
		ir.WorkspacesPathPrefix = DefaultWorkspacesPathPrefix
	}
	if ir.APIVersion == "" {
		ir.APIVersion = DefaultAPIVersion
	}
	if ir.PullRequestBrowserURL == "" {
		ir.PullRequestBrowserURL = ir.PullRequestURL
	}
	if r.AutoApprove.MaxAttempts == 0 {
		r.AutoApprove.MaxAttempts = DefaultAutoApproveAttempts
	}
	if r.AutoApprove.Delay == 0 {
		r.AutoApprove.Delay = DefaultAutoApproveDelay
	}
	if r.Store.URL == "" {
		r.Store.URL = DefaultStoreURL
	}
}

// AzureSettings returns the Azure DevOps settings with environment variables expanded.
func (r *Root) AzureSettings() map[string]string {
	out := make(map[string]string, len(r.AzureDevOps.Settings))
	for k, v := range r.AzureDevOps.Settings {
		out[k] = os.ExpandEnv(v)
	}
	return out
}
