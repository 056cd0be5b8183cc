package domain

import (
	"context"

	"github.com/yaegashi/resourceprovisioner/domain/model"
)

// ResourceRunListOptions filters ResourceRunRepository.List.
type ResourceRunListOptions struct {
	WorkspaceAcronym string
	Limit            int
}

type ResourceRunListOption func(*ResourceRunListOptions)

// WithWorkspace restricts the listing to one workspace acronym.
func WithWorkspace(acronym string) ResourceRunListOption {
	return func(o *ResourceRunListOptions) { o.WorkspaceAcronym = acronym }
}

// WithLimit caps the number of returned runs (most recent first).
func WithLimit(n int) ResourceRunListOption {
	return func(o *ResourceRunListOptions) { o.Limit = n }
}

// ResourceRunRepository stores resourcing run history.
type ResourceRunRepository interface {
	Create(ctx context.Context, r *model.ResourceRun) error
	Get(ctx context.Context, id string) (*model.ResourceRun, error)
	List(ctx context.Context, opts ...ResourceRunListOption) ([]*model.ResourceRun, error)
}
