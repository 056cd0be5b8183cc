package modcatalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

// ModuleRepository is the subset of the repository sync the catalog needs.
type ModuleRepository interface {
	EnsureModuleRepository(ctx context.Context, acronym string) error
	ModuleRepositoryPath(acronym string) string
}

// Catalog lists module versions from version directories (vX.Y.Z) under
// PathPrefix in a workspace's module working copy.
type Catalog struct {
	Modules    ModuleRepository
	PathPrefix string
}

// New returns a Catalog reading <module repository>/<pathPrefix>.
func New(modules ModuleRepository, pathPrefix string) *Catalog {
	return &Catalog{Modules: modules, PathPrefix: pathPrefix}
}

// ModulesDir returns the directory scanned for acronym.
func (c *Catalog) ModulesDir(acronym string) string {
	return filepath.Join(c.Modules.ModuleRepositoryPath(acronym), filepath.FromSlash(c.PathPrefix))
}

// ListModuleVersions returns the discovered versions sorted ascending. The
// module repository is cloned first when the modules directory is absent.
// An empty result is not an error here.
func (c *Catalog) ListModuleVersions(ctx context.Context, acronym string) ([]model.ModuleVersion, error) {
	logger := logging.FromContext(ctx)
	dir := c.ModulesDir(acronym)

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		logger.Info(ctx, "modules directory not found, syncing module repository", "workspace", acronym, "dir", dir)
		if err := c.Modules.EnsureModuleRepository(ctx, acronym); err != nil {
			if errors.Is(err, model.ErrRepositoryUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", model.ErrRepositoryUnavailable, dir, err)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "module repository has no modules directory", "workspace", acronym, "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", model.ErrRepositoryUnavailable, dir, err)
	}

	var versions []model.ModuleVersion
	for _, e := range entries {
		if !e.IsDir() || !model.IsModuleVersionDir(e.Name()) {
			continue
		}
		v, err := model.ParseModuleVersion(e.Name())
		if err != nil {
			logger.Debug(ctx, "skipping module directory", "name", e.Name(), "err", err)
			continue
		}
		versions = append(versions, v)
	}
	model.SortModuleVersions(versions)
	logger.Debug(ctx, "module versions discovered", "workspace", acronym, "count", len(versions))
	return versions, nil
}

var _ model.VersionCatalogPort = (*Catalog)(nil)
