package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yaegashi/resourceprovisioner/adapters/store/rdb"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

const testConfig = `version: v1
workDir: work
moduleRepository:
  url: https://dev.example.com/org/project/_git/modules
infrastructureRepository:
  url: https://dev.example.com/org/project/_git/infra
  pullRequestUrl: https://dev.example.com/org/project/_apis/git/repositories/infra/pullrequests
azureDevOps:
  settings:
    AZURE_AUTH_METHOD: none
    AZURE_CLIENT_SECRET: s3cr3t
logging:
  output: none
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provisioner.yml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "provisioner version latest") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	path := writeConfig(t)

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "--config", path, "config", "show")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "s3cr3t") {
			t.Errorf("secret not masked:\n%s", out)
		}
		for _, want := range []string{"mainBranch: main", "workspacesPathPrefix: terraform/projects"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "--config", path, "config", "show", "-o", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var v map[string]any
		if err := json.Unmarshal([]byte(out), &v); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := execute(t, "--config", path, "config", "show", "-o", "toml"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yml"), "config", "show"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestResourceRunRejectsInvalidRequest(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "--config", path, "resource", "run", "--organization", "Contoso", "-u", "alice", "-t", "new-workspace")
	if !errors.Is(err, model.ErrWorkspaceInvalid) {
		t.Fatalf("err = %v, want ErrWorkspaceInvalid", err)
	}
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestResourceRunsCommands(t *testing.T) {
	dbURL := "sqlite:" + filepath.Join(t.TempDir(), "runs.db")
	db, err := rdb.OpenFromURL(dbURL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rdb.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := rdb.NewResourceRunRepository(db)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := &model.ResourceRun{WorkspaceAcronym: "ABC", RequestingUser: "alice", Templates: []string{"new-workspace"}, Status: model.RunStatusSucceeded, StartedAt: base, FinishedAt: base}
	second := &model.ResourceRun{WorkspaceAcronym: "XYZ", RequestingUser: "bob", Templates: []string{"enable-storage"}, Status: model.RunStatusFailed, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour)}
	for _, r := range []*model.ResourceRun{first, second} {
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "--db-url", dbURL, "resource", "runs", "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines:\n%s", len(lines), out)
		}
		var got model.ResourceRun
		if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.WorkspaceAcronym != "XYZ" {
			t.Errorf("first listed = %s, want most recent XYZ", got.WorkspaceAcronym)
		}
	})

	t.Run("list filtered", func(t *testing.T) {
		out, err := execute(t, "--db-url", dbURL, "resource", "runs", "list", "-w", "ABC")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 1 || !strings.Contains(out, `"ABC"`) {
			t.Errorf("filtered output:\n%s", out)
		}
	})

	t.Run("get", func(t *testing.T) {
		out, err := execute(t, "--db-url", dbURL, "resource", "runs", "get", first.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got model.ResourceRun
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != first.ID || got.RequestingUser != "alice" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := execute(t, "--db-url", dbURL, "resource", "runs", "get", "run-missing")
		if !errors.Is(err, model.ErrResourceRunNotFound) {
			t.Errorf("err = %v, want ErrResourceRunNotFound", err)
		}
	})
}

func TestBuildResourceRunRepository(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "memory", url: "memory:"},
		{name: "sqlite", url: "sqlite:" + filepath.Join(t.TempDir(), "a.db")},
		{name: "sqlite3 alias", url: "sqlite3:" + filepath.Join(t.TempDir(), "b.db")},
		{name: "unsupported", url: "postgres://localhost/db", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := buildResourceRunRepository(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo == nil {
				t.Fatal("nil repository")
			}
		})
	}
}
