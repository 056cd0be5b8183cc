package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yaegashi/resourceprovisioner/domain"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

// ResourceRunRepository is a thread-safe in-memory implementation.
type ResourceRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*model.ResourceRun
	seq  int64
}

func NewResourceRunRepository() *ResourceRunRepository {
	return &ResourceRunRepository{
		runs: make(map[string]*model.ResourceRun),
	}
}

func (r *ResourceRunRepository) nextID() string {
	r.seq++
	return fmt.Sprintf("run-%d-%d", time.Now().UnixNano(), r.seq)
}

func clone(run *model.ResourceRun) *model.ResourceRun {
	cp := *run
	cp.Templates = append([]string(nil), run.Templates...)
	cp.Events = append([]model.RepositoryUpdateEvent(nil), run.Events...)
	return &cp
}

func (r *ResourceRunRepository) Create(_ context.Context, run *model.ResourceRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == "" {
		run.ID = r.nextID()
	}
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("resource run %s already exists", run.ID)
	}
	r.runs[run.ID] = clone(run)
	return nil
}

func (r *ResourceRunRepository) Get(_ context.Context, id string) (*model.ResourceRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, model.ErrResourceRunNotFound
	}
	return clone(run), nil
}

// List returns runs most recent first.
func (r *ResourceRunRepository) List(_ context.Context, opts ...domain.ResourceRunListOption) ([]*model.ResourceRun, error) {
	var o domain.ResourceRunListOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ResourceRun, 0, len(r.runs))
	for _, run := range r.runs {
		if o.WorkspaceAcronym != "" && run.WorkspaceAcronym != o.WorkspaceAcronym {
			continue
		}
		out = append(out, clone(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out, nil
}
