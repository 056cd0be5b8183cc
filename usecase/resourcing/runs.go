package resourcing

import (
	"context"
	"fmt"

	"github.com/yaegashi/resourceprovisioner/domain"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

// ListRunsInput filters stored runs.
type ListRunsInput struct {
	// WorkspaceAcronym restricts the listing when set.
	WorkspaceAcronym string
	// Limit caps the result; zero means no limit.
	Limit int
}

type ListRunsOutput struct {
	Runs []*model.ResourceRun
}

// ListRuns returns stored runs, most recent first.
func (u *UseCase) ListRuns(ctx context.Context, in *ListRunsInput) (*ListRunsOutput, error) {
	if u.Repos == nil || u.Repos.ResourceRun == nil {
		return nil, fmt.Errorf("resource run repository is not configured")
	}
	if in == nil {
		in = &ListRunsInput{}
	}
	var opts []domain.ResourceRunListOption
	if in.WorkspaceAcronym != "" {
		opts = append(opts, domain.WithWorkspace(in.WorkspaceAcronym))
	}
	if in.Limit > 0 {
		opts = append(opts, domain.WithLimit(in.Limit))
	}
	runs, err := u.Repos.ResourceRun.List(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource runs: %w", err)
	}
	return &ListRunsOutput{Runs: runs}, nil
}

type GetRunInput struct {
	RunID string
}

type GetRunOutput struct {
	Run *model.ResourceRun
}

// GetRun returns one stored run or model.ErrResourceRunNotFound.
func (u *UseCase) GetRun(ctx context.Context, in *GetRunInput) (*GetRunOutput, error) {
	if in == nil || in.RunID == "" {
		return nil, fmt.Errorf("GetRunInput.RunID is required")
	}
	if u.Repos == nil || u.Repos.ResourceRun == nil {
		return nil, fmt.Errorf("resource run repository is not configured")
	}
	run, err := u.Repos.ResourceRun.Get(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	return &GetRunOutput{Run: run}, nil
}
