package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
	"github.com/yaegashi/resourceprovisioner/usecase/resourcing"
)

func TestReadBatchFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantN   int
		wantErr string
	}{
		{
			name: "valid",
			content: `requests:
  - workspace:
      acronym: ABC
      organization:
        name: Contoso
        id: "42"
    templates: [new-workspace, enable-storage]
    requestingUser: alice@example.com
  - workspace:
      acronym: XYZ
      organization:
        name: Fabrikam
    templates: [variable-update]
    requestingUser: bob@example.com
`,
			wantN: 2,
		},
		{name: "empty", content: "requests: []\n", wantErr: "no requests"},
		{name: "unknown field", content: "requests:\n  - workspace: {acronym: ABC}\n    bogus: 1\n", wantErr: "failed to unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "requests.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			reqs, err := readBatchFile(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(reqs) != tt.wantN {
				t.Fatalf("got %d requests, want %d", len(reqs), tt.wantN)
			}
			in := reqs[0].input()
			if in.Workspace.Acronym != "ABC" || in.Workspace.Organization.ID != "42" {
				t.Errorf("workspace = %+v", in.Workspace)
			}
			if got := model.TemplateNames(in.Templates); strings.Join(got, ",") != "new-workspace,enable-storage" {
				t.Errorf("templates = %v", got)
			}
		})
	}
}

func TestBatchRequestInputIsIndependent(t *testing.T) {
	req := batchRequest{Workspace: model.Workspace{Acronym: "ABC", Organization: &model.Organization{Name: "Contoso"}}}
	a, b := req.input(), req.input()
	a.Workspace.Version = "v1.0.0"
	a.Workspace.Organization.Name = "changed"
	if b.Workspace.Version != "" || b.Workspace.Organization.Name != "Contoso" {
		t.Errorf("inputs share state: %+v", b.Workspace)
	}
}

func TestRunBatch(t *testing.T) {
	reqs := []batchRequest{
		{Workspace: model.Workspace{Acronym: "ABC"}, RequestingUser: "u0"},
		{Workspace: model.Workspace{Acronym: "XYZ"}, RequestingUser: "u1"},
		{Workspace: model.Workspace{Acronym: "ABC"}, RequestingUser: "u2"},
		{Workspace: model.Workspace{Acronym: "DEF"}, RequestingUser: "fail"},
		{Workspace: model.Workspace{Acronym: "ABC"}, RequestingUser: "u4"},
		{Workspace: model.Workspace{Acronym: "abc"}, RequestingUser: "u5"},
		{Workspace: model.Workspace{Acronym: "ABC"}, RequestingUser: "u6"},
	}

	var (
		mu       sync.Mutex
		active   = map[string]int{}
		order    = map[string][]string{}
		overlap  bool
		inFlight int32
		maxSeen  int32
	)
	handle := func(ctx context.Context, in *resourcing.HandleInput) (*resourcing.HandleOutput, error) {
		acr := strings.ToUpper(in.Workspace.Acronym)
		mu.Lock()
		active[acr]++
		if active[acr] > 1 {
			overlap = true
		}
		order[in.Workspace.Acronym] = append(order[in.Workspace.Acronym], in.RequestingUser)
		mu.Unlock()
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		mu.Lock()
		active[acr]--
		mu.Unlock()

		if in.RequestingUser == "fail" {
			return &resourcing.HandleOutput{RunID: "run-" + in.RequestingUser}, errors.New("boom")
		}
		return &resourcing.HandleOutput{
			RunID:   "run-" + in.RequestingUser,
			Outcome: &model.ResourcingOutcome{Workspace: in.Workspace},
		}, nil
	}

	results := runBatch(context.Background(), reqs, 2, handle)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if want := "run-" + reqs[i].RequestingUser; r.RunID != want {
			t.Errorf("results[%d].RunID = %q, want %q", i, r.RunID, want)
		}
	}
	if results[3].Error != "boom" {
		t.Errorf("results[3].Error = %q", results[3].Error)
	}
	if results[0].Error != "" || results[0].Outcome == nil {
		t.Errorf("results[0] = %+v", results[0])
	}
	if overlap {
		t.Error("requests for the same acronym overlapped")
	}
	if got := strings.Join(order["ABC"], ","); got != "u0,u2,u4,u6" {
		t.Errorf("ABC requests ran as %s, want file order", got)
	}
	if maxSeen > 2 {
		t.Errorf("max in flight = %d, want <= 2", maxSeen)
	}
}

func TestGroupByAcronym(t *testing.T) {
	reqs := []batchRequest{
		{Workspace: model.Workspace{Acronym: "B"}},
		{Workspace: model.Workspace{Acronym: "A"}},
		{Workspace: model.Workspace{Acronym: "B"}},
		{Workspace: model.Workspace{Acronym: "C"}},
		{Workspace: model.Workspace{Acronym: "A"}},
	}
	got := groupByAcronym(reqs)
	want := [][]int{{0, 2}, {1, 4}, {3}}
	if len(got) != len(want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("groups = %v, want %v", got, want)
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("groups = %v, want %v", got, want)
			}
		}
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	results := runBatch(ctx, []batchRequest{{Workspace: model.Workspace{Acronym: "ABC"}}}, 0, func(context.Context, *resourcing.HandleInput) (*resourcing.HandleOutput, error) {
		called = true
		return nil, nil
	})
	if called {
		t.Error("handler called after cancellation")
	}
	if results[0].Error == "" {
		t.Error("expected cancellation error")
	}
}

func TestWithCmdRunLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.NewWithWriter("json", slog.LevelInfo, &buf)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	ctx := logging.WithLogger(context.Background(), l)

	_, cleanup := withCmdRunLogger(ctx, "resource.run", "ABC")
	cleanup(nil)
	_, cleanup = withCmdRunLogger(ctx, "resource.run", "ABC")
	cleanup(errors.New("a very long error message that will be truncated by the logger"))

	out := buf.String()
	for _, want := range []string{"CMD:resource.run/S", "CMD:resource.run/EOK", "CMD:resource.run/EFAIL", `"resourceId":"ABC"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "truncated by the logger") {
		t.Errorf("error not truncated:\n%s", out)
	}
}
