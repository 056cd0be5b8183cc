package resourcing

import (
	"context"
	"fmt"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

// ListModuleVersionsInput is the input for ListModuleVersions.
type ListModuleVersionsInput struct {
	// WorkspaceAcronym selects the module working copy.
	WorkspaceAcronym string
}

// ListModuleVersionsOutput lists versions ascending with the latest last.
type ListModuleVersionsOutput struct {
	Versions []model.ModuleVersion
	Latest   *model.ModuleVersion
}

// ListModuleVersions returns the module versions visible to a workspace.
func (u *UseCase) ListModuleVersions(ctx context.Context, in *ListModuleVersionsInput) (*ListModuleVersionsOutput, error) {
	if in == nil || in.WorkspaceAcronym == "" {
		return nil, fmt.Errorf("ListModuleVersionsInput.WorkspaceAcronym is required")
	}
	versions, err := u.Catalog.ListModuleVersions(ctx, in.WorkspaceAcronym)
	if err != nil {
		return nil, err
	}
	out := &ListModuleVersionsOutput{Versions: versions}
	if latest, ok := model.LatestModuleVersion(versions); ok {
		out.Latest = &latest
	}
	return out, nil
}

// ValidateWorkspaceVersion overwrites ws.Version with the latest module
// version, even when ws already carries one.
func (u *UseCase) ValidateWorkspaceVersion(ctx context.Context, ws *model.Workspace) error {
	versions, err := u.Catalog.ListModuleVersions(ctx, ws.Acronym)
	if err != nil {
		return err
	}
	latest, ok := model.LatestModuleVersion(versions)
	if !ok {
		return fmt.Errorf("%w for workspace %s", model.ErrNoModuleVersions, ws.Acronym)
	}
	if ws.Version != latest.Tag() {
		logging.FromContext(ctx).Info(ctx, "workspace version updated", "workspace", ws.Acronym, "from", ws.Version, "to", latest.Tag())
	}
	ws.Version = latest.Tag()
	return nil
}
