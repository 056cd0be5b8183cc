package naming

import "path/filepath"

const (
	moduleRepositoryDirName         = "modules"
	infrastructureRepositoryDirName = "infrastructure"
)

// BranchRef returns the full ref name of a workspace branch.
func BranchRef(branch string) string { return "refs/heads/" + branch }

// Layout resolves per-workspace working copy paths under a work directory.
// Each acronym owns its own module cache and infrastructure clone so runs
// for different workspaces never share a working tree.
type Layout struct {
	WorkDir string
}

// WorkspaceDir is the root of everything owned by acronym.
func (l Layout) WorkspaceDir(acronym string) string {
	return filepath.Join(l.WorkDir, acronym)
}

func (l Layout) ModuleRepository(acronym string) string {
	return filepath.Join(l.WorkspaceDir(acronym), moduleRepositoryDirName)
}

func (l Layout) InfrastructureRepository(acronym string) string {
	return filepath.Join(l.WorkspaceDir(acronym), infrastructureRepositoryDirName)
}
