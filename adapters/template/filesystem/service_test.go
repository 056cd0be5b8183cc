package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yaegashi/resourceprovisioner/domain/model"
)

type testPaths struct{ root string }

func (p testPaths) ModuleRepositoryPath(acronym string) string {
	return filepath.Join(p.root, acronym, "modules")
}

func (p testPaths) InfrastructureRepositoryPath(acronym string) string {
	return filepath.Join(p.root, acronym, "infrastructure")
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func setup(t *testing.T) (*Service, *model.Workspace) {
	t.Helper()
	paths := testPaths{root: t.TempDir()}
	svc := New(paths, Config{
		ModulePathPrefix:     "modules",
		WorkspacesPathPrefix: "terraform/projects",
		Backend:              map[string]string{"container_name": "tfstate"},
	})
	ws := &model.Workspace{Acronym: "ABC", Version: "v1.2.0", Organization: &model.Organization{ID: "o1", Name: "Org"}}
	base := filepath.Join(paths.ModuleRepositoryPath("ABC"), "modules", "v1.2.0")
	write(t, filepath.Join(base, "new-workspace", "main.tf"), "# main\n")
	write(t, filepath.Join(base, "new-workspace", "sub", "outputs.tf"), "# outputs\n")
	write(t, filepath.Join(base, "new-workspace", VariablesFile), "variables:\n  location: westeurope\n  workspace_acronym: overridden\n")
	write(t, filepath.Join(base, "enable-storage", "storage.tf"), "# storage\n")
	write(t, filepath.Join(base, "enable-storage", VariablesFile), "variables:\n  sku: Standard_LRS\n  tags:\n    team: data\n")
	write(t, filepath.Join(base, "broken", VariablesFile), "variables: [unterminated\n")
	return svc, ws
}

func TestCopyTemplate(t *testing.T) {
	ctx := context.Background()
	svc, ws := setup(t)
	if err := svc.CopyTemplate(ctx, "new-workspace", ws); err != nil {
		t.Fatalf("CopyTemplate: %v", err)
	}
	dst := svc.WorkspaceDir(ws)
	for _, rel := range []string{"main.tf", filepath.Join("sub", "outputs.tf")} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Errorf("%s not copied: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, VariablesFile)); !os.IsNotExist(err) {
		t.Errorf("%s should not be copied", VariablesFile)
	}

	tests := []struct {
		name     string
		template string
	}{
		{"unknown template", "missing"},
		{"path traversal", "../v1.2.0"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CopyTemplate(ctx, tt.template, ws)
			if !errors.Is(err, model.ErrTemplateInvalid) {
				t.Errorf("err = %v, want ErrTemplateInvalid", err)
			}
		})
	}
}

func TestExtractVariables(t *testing.T) {
	ctx := context.Background()
	svc, ws := setup(t)
	if err := svc.ExtractVariables(ctx, "new-workspace", ws); err != nil {
		t.Fatal(err)
	}
	got := readJSON(t, filepath.Join(svc.WorkspaceDir(ws), "new-workspace.auto.tfvars.json"))
	want := map[string]any{
		"location":          "westeurope",
		"workspace_acronym": "ABC",
		"workspace_version": "v1.2.0",
		"organization_name": "Org",
		"organization_id":   "o1",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}

	if err := svc.ExtractVariables(ctx, "broken", ws); !errors.Is(err, model.ErrTemplateInvalid) {
		t.Errorf("broken variables.yml: err = %v", err)
	}
}

func TestExtractBackendConfig(t *testing.T) {
	svc, ws := setup(t)
	if err := svc.ExtractBackendConfig(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(svc.WorkspaceDir(ws), BackendFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "container_name = \"tfstate\"\nkey = \"ABC.tfstate\"\n"
	if string(data) != want {
		t.Errorf("backend config = %q, want %q", data, want)
	}
}

func TestExtractAllVariables(t *testing.T) {
	ctx := context.Background()
	svc, ws := setup(t)
	for _, tmpl := range []string{"new-workspace", "enable-storage"} {
		if err := svc.ExtractVariables(ctx, tmpl, ws); err != nil {
			t.Fatal(err)
		}
	}
	// A template applied under an older version no longer shipped.
	write(t, filepath.Join(svc.WorkspaceDir(ws), "legacy.auto.tfvars.json"), `{"retired": true, "workspace_version": "v0.9.0"}`)

	ws.Version = "v1.3.0"
	if err := svc.ExtractAllVariables(ctx, ws); err != nil {
		t.Fatalf("ExtractAllVariables: %v", err)
	}
	for _, tmpl := range []string{"new-workspace", "enable-storage", "legacy"} {
		vars := readJSON(t, filepath.Join(svc.WorkspaceDir(ws), tmpl+".auto.tfvars.json"))
		if vars["workspace_version"] != "v1.3.0" {
			t.Errorf("%s: workspace_version = %v", tmpl, vars["workspace_version"])
		}
	}
	legacy := readJSON(t, filepath.Join(svc.WorkspaceDir(ws), "legacy.auto.tfvars.json"))
	if legacy["retired"] != true {
		t.Errorf("legacy defaults lost: %v", legacy)
	}
}

func TestExtractAllVariablesMissingWorkspace(t *testing.T) {
	svc, ws := setup(t)
	if err := svc.ExtractAllVariables(context.Background(), ws); err == nil {
		t.Error("expected error for missing workspace directory")
	}
}
