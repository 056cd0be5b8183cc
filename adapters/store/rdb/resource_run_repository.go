package rdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yaegashi/resourceprovisioner/domain"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"gorm.io/gorm"
)

// ResourceRunRepository is a GORM-backed implementation of domain.ResourceRunRepository.
type ResourceRunRepository struct {
	db *gorm.DB
}

func NewResourceRunRepository(db *gorm.DB) *ResourceRunRepository {
	return &ResourceRunRepository{db: db}
}

func toRecord(r *model.ResourceRun) (*ResourceRunRecord, error) {
	templates, err := json.Marshal(r.Templates)
	if err != nil {
		return nil, fmt.Errorf("encode templates: %w", err)
	}
	events, err := json.Marshal(r.Events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return &ResourceRunRecord{
		ID:               r.ID,
		WorkspaceAcronym: r.WorkspaceAcronym,
		WorkspaceVersion: r.WorkspaceVersion,
		RequestingUser:   r.RequestingUser,
		Templates:        string(templates),
		Events:           string(events),
		ReviewRequestID:  r.ReviewRequestID,
		ReviewRequestURL: r.ReviewRequestURL,
		Status:           string(r.Status),
		Error:            r.Error,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}, nil
}

func toModel(rec *ResourceRunRecord) (*model.ResourceRun, error) {
	r := &model.ResourceRun{
		ID:               rec.ID,
		WorkspaceAcronym: rec.WorkspaceAcronym,
		WorkspaceVersion: rec.WorkspaceVersion,
		RequestingUser:   rec.RequestingUser,
		ReviewRequestID:  rec.ReviewRequestID,
		ReviewRequestURL: rec.ReviewRequestURL,
		Status:           model.RunStatus(rec.Status),
		Error:            rec.Error,
		StartedAt:        rec.StartedAt,
		FinishedAt:       rec.FinishedAt,
	}
	if rec.Templates != "" {
		if err := json.Unmarshal([]byte(rec.Templates), &r.Templates); err != nil {
			return nil, fmt.Errorf("decode templates of %s: %w", rec.ID, err)
		}
	}
	if rec.Events != "" {
		if err := json.Unmarshal([]byte(rec.Events), &r.Events); err != nil {
			return nil, fmt.Errorf("decode events of %s: %w", rec.ID, err)
		}
	}
	return r, nil
}

func (r *ResourceRunRepository) Create(ctx context.Context, run *model.ResourceRun) error {
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()
	}
	rec, err := toRecord(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *ResourceRunRepository) Get(ctx context.Context, id string) (*model.ResourceRun, error) {
	var rec ResourceRunRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrResourceRunNotFound
		}
		return nil, err
	}
	return toModel(&rec)
}

// List returns runs most recent first.
func (r *ResourceRunRepository) List(ctx context.Context, opts ...domain.ResourceRunListOption) ([]*model.ResourceRun, error) {
	var o domain.ResourceRunListOptions
	for _, opt := range opts {
		opt(&o)
	}
	q := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if o.WorkspaceAcronym != "" {
		q = q.Where("workspace_acronym = ?", o.WorkspaceAcronym)
	}
	if o.Limit > 0 {
		q = q.Limit(o.Limit)
	}
	var recs []ResourceRunRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ResourceRun, 0, len(recs))
	for i := range recs {
		m, err := toModel(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Ensure interface satisfaction.
var _ domain.ResourceRunRepository = (*ResourceRunRepository)(nil)
