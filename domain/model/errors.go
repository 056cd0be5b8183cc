package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrWorkspaceInvalid = errors.New("workspace invalid")
	ErrTemplateInvalid  = errors.New("template invalid")
)

// Workflow errors. Everything except ErrNoChangesDetected and
// ErrTemplateApplication aborts a resourcing run.
var (
	ErrRepositoryUnavailable       = errors.New("repository unavailable")
	ErrNoChangesDetected           = errors.New("no changes detected")
	ErrPushFailed                  = errors.New("push failed")
	ErrReviewRequestCreationFailed = errors.New("review request creation failed")
	ErrAutoApproveFailed           = errors.New("auto-approve failed")
	ErrAutoApproveIncomplete       = errors.New("auto-approve incomplete")
	ErrTemplateApplication         = errors.New("template application failed")
	ErrNoModuleVersions            = errors.New("no module versions found")
)

var ErrResourceRunNotFound = errors.New("resource run not found")

// AggregateError reports the templates that failed during a run whose
// shared workflow steps otherwise completed.
type AggregateError struct {
	Workspace string
	Failed    []RepositoryUpdateEvent
}

func (e *AggregateError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, ev := range e.Failed {
		names = append(names, ev.Template)
	}
	return fmt.Sprintf("error while handling resource run request for %s: %d template(s) failed: %s",
		e.Workspace, len(e.Failed), strings.Join(names, ", "))
}

func (e *AggregateError) Unwrap() error { return ErrTemplateApplication }
