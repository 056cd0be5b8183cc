package model

import "context"

// RepositorySyncPort is a domain port for the module and infrastructure
// repository working copies. Working copies are keyed by workspace acronym.
type RepositorySyncPort interface {
	EnsureModuleRepository(ctx context.Context, acronym string) error
	EnsureInfrastructureRepository(ctx context.Context, acronym string) error
	CheckoutWorkspaceBranch(ctx context.Context, acronym string) error
	Push(ctx context.Context, acronym string) error
	// Commit stages all changes and commits them. It returns
	// ErrNoChangesDetected when the working tree is clean.
	Commit(ctx context.Context, acronym, author, message string) error
	// DiscardChanges drops uncommitted edits left by a failed template.
	DiscardChanges(ctx context.Context, acronym string) error
	BranchTip(ctx context.Context, acronym string) (string, error)
}

// VersionCatalogPort discovers module versions available to a workspace.
type VersionCatalogPort interface {
	ListModuleVersions(ctx context.Context, acronym string) ([]ModuleVersion, error)
}

// TemplatePort renders templates into a workspace's working tree.
type TemplatePort interface {
	CopyTemplate(ctx context.Context, template string, ws *Workspace) error
	ExtractVariables(ctx context.Context, template string, ws *Workspace) error
	ExtractBackendConfig(ctx context.Context, ws *Workspace) error
	ExtractAllVariables(ctx context.Context, ws *Workspace) error
}

// ReviewRequestPort opens and completes review requests on the remote
// review system.
type ReviewRequestPort interface {
	CreateOrReuse(ctx context.Context, acronym, user string) (*ReviewRequest, error)
	AutoApprove(ctx context.Context, id int, acronym string) error
}

// TokenProvider returns a bearer token for remote git and API operations.
// Implementations may refresh the token on every call.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// MetricsRecorder receives run measurements. A nil recorder is allowed by
// callers.
type MetricsRecorder interface {
	ObserveEvent(acronym string, ev RepositoryUpdateEvent)
	ObserveRun(acronym string, status RunStatus, seconds float64)
}
