package model

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// moduleVersionPattern matches module directory names of the form vX.Y.Z.
var moduleVersionPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// ModuleVersion is a semantic version discovered in the module repository.
type ModuleVersion struct {
	v *semver.Version
}

// IsModuleVersionDir reports whether name is a module version directory name.
func IsModuleVersionDir(name string) bool {
	return moduleVersionPattern.MatchString(name)
}

// ParseModuleVersion parses a directory name like "v1.10.0".
func ParseModuleVersion(name string) (ModuleVersion, error) {
	if !IsModuleVersionDir(name) {
		return ModuleVersion{}, fmt.Errorf("invalid module version %q", name)
	}
	v, err := semver.StrictNewVersion(name[1:])
	if err != nil {
		return ModuleVersion{}, fmt.Errorf("invalid module version %q: %w", name, err)
	}
	return ModuleVersion{v: v}, nil
}

// MustParseModuleVersion is like ParseModuleVersion but panics on error.
func MustParseModuleVersion(name string) ModuleVersion {
	mv, err := ParseModuleVersion(name)
	if err != nil {
		panic(err)
	}
	return mv
}

func (m ModuleVersion) Major() uint64 { return m.v.Major() }
func (m ModuleVersion) Minor() uint64 { return m.v.Minor() }
func (m ModuleVersion) Patch() uint64 { return m.v.Patch() }

// String returns "X.Y.Z" without the v prefix.
func (m ModuleVersion) String() string {
	if m.v == nil {
		return ""
	}
	return m.v.String()
}

// Tag returns the directory form "vX.Y.Z".
func (m ModuleVersion) Tag() string { return "v" + m.String() }

// Compare returns -1, 0 or 1 using semantic version ordering.
func (m ModuleVersion) Compare(o ModuleVersion) int { return m.v.Compare(o.v) }

// SortModuleVersions sorts versions ascending in place.
func SortModuleVersions(versions []ModuleVersion) {
	sort.SliceStable(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) < 0 })
}

// LatestModuleVersion returns the maximum version. ok is false when versions
// is empty.
func LatestModuleVersion(versions []ModuleVersion) (latest ModuleVersion, ok bool) {
	for i, v := range versions {
		if i == 0 || v.Compare(latest) > 0 {
			latest = v
		}
	}
	return latest, len(versions) > 0
}
