package model

import "time"

// RunStatus summarizes a stored resourcing run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// ResourceRun is the history record of one resourcing invocation.
type ResourceRun struct {
	ID               string                  `json:"id"`
	WorkspaceAcronym string                  `json:"workspaceAcronym"`
	WorkspaceVersion string                  `json:"workspaceVersion,omitempty"`
	RequestingUser   string                  `json:"requestingUser"`
	Templates        []string                `json:"templates"`
	Events           []RepositoryUpdateEvent `json:"events,omitempty"`
	ReviewRequestID  int                     `json:"reviewRequestId,omitempty"`
	ReviewRequestURL string                  `json:"reviewRequestUrl,omitempty"`
	Status           RunStatus               `json:"status"`
	Error            string                  `json:"error,omitempty"`
	StartedAt        time.Time               `json:"startedAt"`
	FinishedAt       time.Time               `json:"finishedAt"`
}
