package resourcing

import (
	"time"

	"github.com/yaegashi/resourceprovisioner/domain"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

// Repos holds repositories needed for resourcing use cases.
type Repos struct {
	ResourceRun domain.ResourceRunRepository
}

// UseCase wires the ports of the resourcing workflow. Repos.ResourceRun and
// Metrics are optional.
type UseCase struct {
	Repos          *Repos
	RepositorySync model.RepositorySyncPort
	Catalog        model.VersionCatalogPort
	Templates      model.TemplatePort
	Review         model.ReviewRequestPort
	Metrics        model.MetricsRecorder
	// MainBranch is the review target; no workspace may be named after it.
	MainBranch string
	// Now overrides the clock for run history.
	Now func() time.Time
}

func (u *UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
