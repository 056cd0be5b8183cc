package model

// ReviewRequest is a pull request opened for a workspace branch.
type ReviewRequest struct {
	WorkspaceAcronym string `json:"workspaceAcronym"`
	URL              string `json:"url"`
	ID               int    `json:"id"`
}

// ResourcingOutcome is the terminal result of one orchestration run.
type ResourcingOutcome struct {
	ReviewRequest *ReviewRequest          `json:"reviewRequest"`
	Workspace     *Workspace              `json:"workspace"`
	Events        []RepositoryUpdateEvent `json:"events"`
}

// Failed returns the events with StatusError in order.
func (o *ResourcingOutcome) Failed() []RepositoryUpdateEvent {
	var out []RepositoryUpdateEvent
	for _, ev := range o.Events {
		if ev.StatusCode == StatusError {
			out = append(out, ev)
		}
	}
	return out
}
