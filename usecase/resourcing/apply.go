package resourcing

import (
	"context"
	"errors"
	"fmt"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

// Apply applies one template to the checked out workspace branch and
// commits it as user. It never fails: every outcome, including a panic in
// a port, becomes an event.
func (u *UseCase) Apply(ctx context.Context, template model.Template, ws *model.Workspace, user string) (ev model.RepositoryUpdateEvent) {
	logger := logging.FromContext(ctx).With("workspace", ws.Acronym, "version", ws.Version, "template", template.Name)
	ev.Template = template.Name

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.Error(ctx, "error while creating resource run", "err", err)
			ev.StatusCode = model.StatusError
			ev.Message = errorMessage(template, ws)
			u.discardChanges(ctx, ws, logger)
		}
	}()

	err := u.applyTemplate(ctx, template, ws, user)
	switch {
	case err == nil:
		ev.StatusCode = model.StatusSuccess
		ev.Message = fmt.Sprintf("Successfully created resource run for [%s]%s in %s", ws.Version, template.Name, ws.Acronym)
		logger.Info(ctx, "resource run committed")
	case errors.Is(err, model.ErrNoChangesDetected):
		ev.StatusCode = model.StatusNoChangesDetected
		ev.Message = fmt.Sprintf("No changes detected after resource run for [%s]%s in %s", ws.Version, template.Name, ws.Acronym)
		logger.Info(ctx, "resource run produced no changes")
	default:
		ev.StatusCode = model.StatusError
		ev.Message = errorMessage(template, ws)
		logger.Error(ctx, "error while creating resource run", "err", err)
		u.discardChanges(ctx, ws, logger)
	}
	return ev
}

// discardChanges drops the partial output of a failed template so that it is
// neither committed with the next template nor left behind for the next run.
func (u *UseCase) discardChanges(ctx context.Context, ws *model.Workspace, logger logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "failed to discard changes", "err", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := u.RepositorySync.DiscardChanges(ctx, ws.Acronym); err != nil {
		logger.Error(ctx, "failed to discard changes", "err", err)
	}
}

func errorMessage(template model.Template, ws *model.Workspace) string {
	return fmt.Sprintf("Error creating resource run for [%s]%s in %s", ws.Version, template.Name, ws.Acronym)
}

func (u *UseCase) applyTemplate(ctx context.Context, template model.Template, ws *model.Workspace, user string) error {
	if err := u.Templates.CopyTemplate(ctx, template.Name, ws); err != nil {
		return fmt.Errorf("copy template: %w", err)
	}
	if err := u.Templates.ExtractVariables(ctx, template.Name, ws); err != nil {
		return fmt.Errorf("extract variables: %w", err)
	}
	switch {
	case template.IsNewWorkspace():
		if err := u.Templates.ExtractBackendConfig(ctx, ws); err != nil {
			return fmt.Errorf("extract backend config: %w", err)
		}
	case template.IsVariableUpdate():
		if err := u.Templates.ExtractAllVariables(ctx, ws); err != nil {
			return fmt.Errorf("extract all variables: %w", err)
		}
	}
	return u.RepositorySync.Commit(ctx, ws.Acronym, user, fmt.Sprintf("Committing %s changes", template.Name))
}

// ApplyAll refreshes the workspace version, then applies templates in
// execution order: new-workspace first, the rest as requested.
func (u *UseCase) ApplyAll(ctx context.Context, templates []model.Template, ws *model.Workspace, user string) ([]model.RepositoryUpdateEvent, error) {
	if err := u.ValidateWorkspaceVersion(ctx, ws); err != nil {
		return nil, err
	}
	return u.applyAll(ctx, templates, ws, user), nil
}

// applyAll returns exactly one event per template. Once ctx is done the
// remaining templates are reported as cancelled without being attempted.
func (u *UseCase) applyAll(ctx context.Context, templates []model.Template, ws *model.Workspace, user string) []model.RepositoryUpdateEvent {
	ordered := model.OrderTemplates(templates)
	events := make([]model.RepositoryUpdateEvent, 0, len(ordered))
	for _, t := range ordered {
		var ev model.RepositoryUpdateEvent
		if err := ctx.Err(); err != nil {
			ev = model.RepositoryUpdateEvent{
				Template:   t.Name,
				Message:    fmt.Sprintf("Cancelled resource run for [%s]%s in %s: %v", ws.Version, t.Name, ws.Acronym, err),
				StatusCode: model.StatusError,
			}
		} else {
			ev = u.Apply(ctx, t, ws, user)
		}
		if u.Metrics != nil {
			u.Metrics.ObserveEvent(ws.Acronym, ev)
		}
		events = append(events, ev)
	}
	return events
}
