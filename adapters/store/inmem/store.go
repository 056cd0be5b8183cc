package inmem

import "github.com/yaegashi/resourceprovisioner/domain"

// Store groups the in-memory repositories.
type Store struct {
	ResourceRunRepo *ResourceRunRepository
}

// NewStore creates a new in-memory store with all repositories.
func NewStore() *Store {
	return &Store{
		ResourceRunRepo: NewResourceRunRepository(),
	}
}

// Compile-time assertions
var _ domain.ResourceRunRepository = (*ResourceRunRepository)(nil)
