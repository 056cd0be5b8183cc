package model

// Organization references the tenant organization owning a workspace.
type Organization struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Workspace identifies one tenant's infrastructure working copy. Version is
// rewritten to the latest module version on every resourcing run.
type Workspace struct {
	Acronym      string        `json:"acronym" yaml:"acronym" validate:"required"`
	Version      string        `json:"version,omitempty" yaml:"version,omitempty"`
	Organization *Organization `json:"organization" yaml:"organization" validate:"required"`
}

// DefaultWorkspaceVersion is the placeholder version of a workspace that has
// never been resourced.
const DefaultWorkspaceVersion = "latest"
