package provisionercfg

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs semantic validation on the configuration tree.
func (r *Root) Validate() error {
	if r.Version != "" && r.Version != "v1" {
		return fmt.Errorf("version: unsupported %q", r.Version)
	}
	if r.ModuleRepository.URL == "" {
		return fmt.Errorf("moduleRepository.url: required")
	}
	if strings.Contains(r.ModuleRepository.PathPrefix, "..") {
		return fmt.Errorf("moduleRepository.pathPrefix: must not contain '..'")
	}
	ir := r.InfrastructureRepository
	if ir.URL == "" {
		return fmt.Errorf("infrastructureRepository.url: required")
	}
	if strings.Contains(ir.WorkspacesPathPrefix, "..") {
		return fmt.Errorf("infrastructureRepository.workspacesPathPrefix: must not contain '..'")
	}
	if err := validateHTTPURL(ir.PullRequestURL); err != nil {
		return fmt.Errorf("infrastructureRepository.pullRequestUrl: %w", err)
	}
	if err := validateHTTPURL(ir.PullRequestBrowserURL); err != nil {
		return fmt.Errorf("infrastructureRepository.pullRequestBrowserUrl: %w", err)
	}
	if r.AutoApprove.MaxAttempts < 1 {
		return fmt.Errorf("autoApprove.maxAttempts: must be at least 1")
	}
	if r.AutoApprove.Delay < 0 {
		return fmt.Errorf("autoApprove.delay: must not be negative")
	}
	if !strings.HasPrefix(r.Store.URL, "memory:") && !strings.HasPrefix(r.Store.URL, "sqlite:") {
		return fmt.Errorf("store.url: unsupported scheme %q", r.Store.URL)
	}
	return nil
}

func validateHTTPURL(s string) error {
	if s == "" {
		return fmt.Errorf("required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.RawQuery != "" {
		return fmt.Errorf("must not carry a query string")
	}
	return nil
}

// Masked returns a copy with secret-looking Azure settings replaced.
func (r *Root) Masked() *Root {
	cp := *r
	cp.AzureDevOps.Settings = make(map[string]string, len(r.AzureDevOps.Settings))
	for k, v := range r.AzureDevOps.Settings {
		if strings.Contains(k, "SECRET") || strings.Contains(k, "TOKEN") || strings.Contains(k, "PASSWORD") {
			v = "***"
		}
		cp.AzureDevOps.Settings[k] = v
	}
	return &cp
}
