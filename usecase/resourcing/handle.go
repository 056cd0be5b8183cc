package resourcing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

// Workflow step names used to wrap step failures.
const (
	StepVersionSync         = "VersionSync"
	StepRepositorySync      = "RepositorySync"
	StepPush                = "Push"
	StepReviewRequestCreate = "ReviewRequestCreate"
	StepAutoApprove         = "AutoApprove"
)

// HandleInput is one resourcing request.
type HandleInput struct {
	// Workspace is mutated: its Version is set to the latest module version.
	Workspace      *model.Workspace
	Templates      []model.Template
	RequestingUser string
}

// HandleOutput carries the outcome and the stored run id (empty when no
// run repository is wired).
type HandleOutput struct {
	Outcome *model.ResourcingOutcome
	RunID   string
}

// Handle runs the whole resourcing workflow for one workspace:
// version sync, repository sync, template application, push, review
// request creation and auto-approval.
//
// Template failures do not stop the workflow. When any occurred, Handle
// returns the complete output together with a *model.AggregateError. Any
// other step failure aborts the run and is returned wrapped with the step
// name; the output then holds what was gathered so far. Callers must
// serialize runs of the same acronym.
func (u *UseCase) Handle(ctx context.Context, in *HandleInput) (out *HandleOutput, err error) {
	if err := validateInput(in, u.MainBranch); err != nil {
		return nil, err
	}
	ws := in.Workspace
	ctx, end := logging.Span(ctx, "UC", "Handle", "workspace", ws.Acronym)
	defer func() { end(err) }()
	logger := logging.FromContext(ctx)

	startedAt := u.now()
	outcome := &model.ResourcingOutcome{Workspace: ws, Events: []model.RepositoryUpdateEvent{}}
	out = &HandleOutput{Outcome: outcome}
	defer func() {
		out.RunID = u.record(ctx, in, outcome, startedAt, err)
	}()

	if err := u.ValidateWorkspaceVersion(ctx, ws); err != nil {
		return out, fmt.Errorf("%s: %w", StepVersionSync, err)
	}
	if err := u.syncRepositories(ctx, ws.Acronym); err != nil {
		return out, fmt.Errorf("%s: %w", StepRepositorySync, err)
	}

	outcome.Events = u.applyAll(ctx, in.Templates, ws, in.RequestingUser)

	failed := outcome.Failed()
	for _, ev := range failed {
		logger.Error(ctx, "template failed", "template", ev.Template, "version", ws.Version, "message", ev.Message)
	}

	if !anyCommitted(outcome.Events) {
		logger.Info(ctx, "no template committed changes, skipping review request")
	} else {
		if err := u.RepositorySync.Push(ctx, ws.Acronym); err != nil {
			return out, fmt.Errorf("%s: %w", StepPush, err)
		}
		rr, err := u.Review.CreateOrReuse(ctx, ws.Acronym, in.RequestingUser)
		if err != nil {
			return out, fmt.Errorf("%s: %w", StepReviewRequestCreate, err)
		}
		outcome.ReviewRequest = rr
		if err := u.Review.AutoApprove(ctx, rr.ID, ws.Acronym); err != nil {
			return out, fmt.Errorf("%s: %w", StepAutoApprove, err)
		}
	}

	if len(failed) > 0 {
		return out, &model.AggregateError{Workspace: ws.Acronym, Failed: failed}
	}
	return out, nil
}

func (u *UseCase) syncRepositories(ctx context.Context, acronym string) error {
	if err := u.RepositorySync.EnsureModuleRepository(ctx, acronym); err != nil {
		return err
	}
	if err := u.RepositorySync.EnsureInfrastructureRepository(ctx, acronym); err != nil {
		return err
	}
	return u.RepositorySync.CheckoutWorkspaceBranch(ctx, acronym)
}

func anyCommitted(events []model.RepositoryUpdateEvent) bool {
	for _, ev := range events {
		if ev.StatusCode == model.StatusSuccess {
			return true
		}
	}
	return false
}

// record stores the run history and observes run metrics. Storage failures
// are logged and do not change the run result.
func (u *UseCase) record(ctx context.Context, in *HandleInput, outcome *model.ResourcingOutcome, startedAt time.Time, runErr error) string {
	finishedAt := u.now()
	status := runStatus(runErr)
	if u.Metrics != nil {
		u.Metrics.ObserveRun(in.Workspace.Acronym, status, finishedAt.Sub(startedAt).Seconds())
	}
	if u.Repos == nil || u.Repos.ResourceRun == nil {
		return ""
	}
	run := &model.ResourceRun{
		WorkspaceAcronym: in.Workspace.Acronym,
		WorkspaceVersion: in.Workspace.Version,
		RequestingUser:   in.RequestingUser,
		Templates:        model.TemplateNames(model.OrderTemplates(in.Templates)),
		Events:           outcome.Events,
		Status:           status,
		StartedAt:        startedAt,
		FinishedAt:       finishedAt,
	}
	if rr := outcome.ReviewRequest; rr != nil {
		run.ReviewRequestID = rr.ID
		run.ReviewRequestURL = rr.URL
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := u.Repos.ResourceRun.Create(ctx, run); err != nil {
		logging.FromContext(ctx).Warn(ctx, "failed to store resource run", "err", err)
		return ""
	}
	return run.ID
}

func runStatus(err error) model.RunStatus {
	var agg *model.AggregateError
	switch {
	case err == nil:
		return model.RunStatusSucceeded
	case errors.As(err, &agg):
		return model.RunStatusPartial
	default:
		return model.RunStatusFailed
	}
}
