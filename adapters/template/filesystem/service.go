package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

const (
	// VariablesFile holds a template's default variables. It is metadata and
	// is not copied into the workspace.
	VariablesFile = "variables.yml"
	// BackendFile is written into the workspace by the new-workspace template.
	BackendFile = "backend.tfbackend"

	tfvarsSuffix = ".auto.tfvars.json"
)

// Paths resolves the working copies of a workspace.
type Paths interface {
	ModuleRepositoryPath(acronym string) string
	InfrastructureRepositoryPath(acronym string) string
}

// Config configures a Service.
type Config struct {
	ModulePathPrefix     string
	WorkspacesPathPrefix string
	// Backend holds static backend settings (storage account, container...).
	// The state key is always derived from the workspace acronym.
	Backend map[string]string
}

// Service implements model.TemplatePort with plain file copies. Templates
// live in <module repo>/<ModulePathPrefix>/<version>/<template>/ and are
// copied into <infrastructure repo>/<WorkspacesPathPrefix>/<acronym>/.
type Service struct {
	paths Paths
	cfg   Config
}

// New returns a Service.
func New(paths Paths, cfg Config) *Service {
	return &Service{paths: paths, cfg: cfg}
}

// variablesDoc is the schema of variables.yml.
type variablesDoc struct {
	Variables map[string]any `yaml:"variables"`
}

// TemplateDir returns the source directory of template for ws.
func (s *Service) TemplateDir(template string, ws *model.Workspace) string {
	return filepath.Join(s.paths.ModuleRepositoryPath(ws.Acronym), filepath.FromSlash(s.cfg.ModulePathPrefix), ws.Version, template)
}

// WorkspaceDir returns the destination directory for ws.
func (s *Service) WorkspaceDir(ws *model.Workspace) string {
	return filepath.Join(s.paths.InfrastructureRepositoryPath(ws.Acronym), filepath.FromSlash(s.cfg.WorkspacesPathPrefix), ws.Acronym)
}

// CopyTemplate copies every template file into the workspace directory,
// overwriting existing files.
func (s *Service) CopyTemplate(ctx context.Context, template string, ws *model.Workspace) error {
	if err := checkTemplateName(template); err != nil {
		return err
	}
	src := s.TemplateDir(template, ws)
	dst := s.WorkspaceDir(ws)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s not found in module version %s", model.ErrTemplateInvalid, template, ws.Version)
	}
	logging.FromContext(ctx).Debug(ctx, "copying template", "template", template, "src", src, "dst", dst)

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if rel == VariablesFile || !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

// ExtractVariables writes <template>.auto.tfvars.json into the workspace
// directory from the template's variables.yml defaults and the workspace
// identity.
func (s *Service) ExtractVariables(ctx context.Context, template string, ws *model.Workspace) error {
	if err := checkTemplateName(template); err != nil {
		return err
	}
	defaults, err := readVariables(filepath.Join(s.TemplateDir(template, ws), VariablesFile))
	if err != nil {
		return fmt.Errorf("%s: %w", template, err)
	}
	return s.writeVariables(ctx, template, ws, defaults)
}

// ExtractBackendConfig writes the terraform backend configuration of ws.
func (s *Service) ExtractBackendConfig(ctx context.Context, ws *model.Workspace) error {
	values := make(map[string]string, len(s.cfg.Backend)+1)
	for k, v := range s.cfg.Backend {
		values[k] = v
	}
	values["key"] = ws.Acronym + ".tfstate"

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, strconv.Quote(values[k]))
	}

	path := filepath.Join(s.WorkspaceDir(ws), BackendFile)
	logging.FromContext(ctx).Debug(ctx, "writing backend config", "path", path)
	return writeFile(path, []byte(b.String()))
}

// ExtractAllVariables regenerates the variable file of every template
// already applied to ws, so workspace-level values such as the version are
// refreshed everywhere. Templates missing from the current module version
// keep their previous template defaults.
func (s *Service) ExtractAllVariables(ctx context.Context, ws *model.Workspace) error {
	logger := logging.FromContext(ctx)
	entries, err := os.ReadDir(s.WorkspaceDir(ws))
	if err != nil {
		return fmt.Errorf("read workspace directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, tfvarsSuffix) {
			continue
		}
		template := strings.TrimSuffix(name, tfvarsSuffix)
		defaults, err := readVariables(filepath.Join(s.TemplateDir(template, ws), VariablesFile))
		if err != nil {
			return fmt.Errorf("%s: %w", template, err)
		}
		if defaults == nil {
			if defaults, err = s.readTfvars(ws, template); err != nil {
				return err
			}
		}
		logger.Debug(ctx, "refreshing variables", "template", template)
		if err := s.writeVariables(ctx, template, ws, defaults); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeVariables(ctx context.Context, template string, ws *model.Workspace, defaults map[string]any) error {
	vars := make(map[string]any, len(defaults)+4)
	for k, v := range defaults {
		vars[k] = v
	}
	for k, v := range workspaceVariables(ws) {
		vars[k] = v
	}
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	path := filepath.Join(s.WorkspaceDir(ws), template+tfvarsSuffix)
	logging.FromContext(ctx).Debug(ctx, "writing variables", "path", path, "count", len(vars))
	return writeFile(path, append(data, '\n'))
}

func (s *Service) readTfvars(ws *model.Workspace, template string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(s.WorkspaceDir(ws), template+tfvarsSuffix))
	if err != nil {
		return nil, err
	}
	var vars map[string]any
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("%s%s: %w", template, tfvarsSuffix, err)
	}
	return vars, nil
}

func workspaceVariables(ws *model.Workspace) map[string]any {
	vars := map[string]any{
		"workspace_acronym": ws.Acronym,
		"workspace_version": ws.Version,
	}
	if ws.Organization != nil {
		vars["organization_name"] = ws.Organization.Name
		if ws.Organization.ID != "" {
			vars["organization_id"] = ws.Organization.ID
		}
	}
	return vars
}

// readVariables returns nil when the file is absent.
func readVariables(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc variablesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrTemplateInvalid, VariablesFile, err)
	}
	return doc.Variables, nil
}

func checkTemplateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", model.ErrTemplateInvalid, name)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ model.TemplatePort = (*Service)(nil)
