package provisionercfg

import "time"

// Root is the top-level structure of provisioner.yml.
type Root struct {
	Version                  string                   `yaml:"version"`
	WorkDir                  string                   `yaml:"workDir"`
	ModuleRepository         ModuleRepository         `yaml:"moduleRepository"`
	InfrastructureRepository InfrastructureRepository `yaml:"infrastructureRepository"`
	AzureDevOps              AzureDevOps              `yaml:"azureDevOps"`
	AutoApprove              AutoApprove              `yaml:"autoApprove"`
	Store                    Store                    `yaml:"store"`
	Logging                  Logging                  `yaml:"logging"`
}

// ModuleRepository describes the read-only repository of versioned templates.
type ModuleRepository struct {
	URL          string `yaml:"url"`
	Branch       string `yaml:"branch,omitempty"`
	PathPrefix   string `yaml:"pathPrefix,omitempty"`
	Authenticate bool   `yaml:"authenticate,omitempty"` // use Azure DevOps credentials for clone
}

// InfrastructureRepository describes the read-write repository holding one
// branch per workspace and the review API that merges them.
type InfrastructureRepository struct {
	URL                   string `yaml:"url"`
	MainBranch            string `yaml:"mainBranch,omitempty"`
	WorkspacesPathPrefix  string `yaml:"workspacesPathPrefix,omitempty"`
	PullRequestURL        string `yaml:"pullRequestUrl"`
	PullRequestBrowserURL string `yaml:"pullRequestBrowserUrl,omitempty"`
	APIVersion            string `yaml:"apiVersion,omitempty"`
	// Backend holds static terraform backend settings written for new
	// workspaces. The state key is derived from the acronym.
	Backend map[string]string `yaml:"backend,omitempty"`
}

// AzureDevOps holds credential settings keyed like the Azure SDK environment
// (AZURE_AUTH_METHOD, AZURE_TENANT_ID, AZURE_CLIENT_ID, ...). Values are
// expanded with os.ExpandEnv.
type AzureDevOps struct {
	Settings map[string]string `yaml:"settings,omitempty"`
}

// AutoApprove tunes the completion retry loop.
type AutoApprove struct {
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	Delay       time.Duration `yaml:"delay,omitempty"`
}

// Store selects the run history backend (memory: | sqlite:<dsn>).
type Store struct {
	URL string `yaml:"url,omitempty"`
}

// Logging mirrors logging.LogConfig.
type Logging struct {
	Format        string `yaml:"format,omitempty"`
	Level         string `yaml:"level,omitempty"`
	Output        string `yaml:"output,omitempty"`
	Dir           string `yaml:"dir,omitempty"`
	RetentionDays int    `yaml:"retentionDays,omitempty"`
}
