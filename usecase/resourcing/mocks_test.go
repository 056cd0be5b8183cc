package resourcing

import (
	"context"
	"sync"

	"github.com/yaegashi/resourceprovisioner/domain/model"
)

type mockSync struct {
	mu             sync.Mutex
	calls          []string
	EnsureModuleFn func(ctx context.Context, acronym string) error
	EnsureInfraFn  func(ctx context.Context, acronym string) error
	CheckoutFn     func(ctx context.Context, acronym string) error
	PushFn         func(ctx context.Context, acronym string) error
	CommitFn       func(ctx context.Context, acronym, author, message string) error
	DiscardFn      func(ctx context.Context, acronym string) error
}

func (m *mockSync) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSync) EnsureModuleRepository(ctx context.Context, acronym string) error {
	m.record("EnsureModuleRepository")
	if m.EnsureModuleFn != nil {
		return m.EnsureModuleFn(ctx, acronym)
	}
	return nil
}

func (m *mockSync) EnsureInfrastructureRepository(ctx context.Context, acronym string) error {
	m.record("EnsureInfrastructureRepository")
	if m.EnsureInfraFn != nil {
		return m.EnsureInfraFn(ctx, acronym)
	}
	return nil
}

func (m *mockSync) CheckoutWorkspaceBranch(ctx context.Context, acronym string) error {
	m.record("CheckoutWorkspaceBranch")
	if m.CheckoutFn != nil {
		return m.CheckoutFn(ctx, acronym)
	}
	return nil
}

func (m *mockSync) Push(ctx context.Context, acronym string) error {
	m.record("Push")
	if m.PushFn != nil {
		return m.PushFn(ctx, acronym)
	}
	return nil
}

func (m *mockSync) Commit(ctx context.Context, acronym, author, message string) error {
	m.record("Commit:" + message)
	if m.CommitFn != nil {
		return m.CommitFn(ctx, acronym, author, message)
	}
	return nil
}

func (m *mockSync) DiscardChanges(ctx context.Context, acronym string) error {
	m.record("DiscardChanges")
	if m.DiscardFn != nil {
		return m.DiscardFn(ctx, acronym)
	}
	return nil
}

func (m *mockSync) BranchTip(context.Context, string) (string, error) { return "deadbeef", nil }

type mockCatalog struct {
	versions []string
	err      error
}

func (m *mockCatalog) ListModuleVersions(context.Context, string) ([]model.ModuleVersion, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.ModuleVersion, 0, len(m.versions))
	for _, v := range m.versions {
		out = append(out, model.MustParseModuleVersion(v))
	}
	return out, nil
}

type mockTemplates struct {
	calls          []string
	CopyFn         func(template string) error
	ExtractFn      func(template string) error
	BackendFn      func() error
	AllVariablesFn func() error
}

func (m *mockTemplates) CopyTemplate(_ context.Context, template string, _ *model.Workspace) error {
	m.calls = append(m.calls, "Copy:"+template)
	if m.CopyFn != nil {
		return m.CopyFn(template)
	}
	return nil
}

func (m *mockTemplates) ExtractVariables(_ context.Context, template string, _ *model.Workspace) error {
	m.calls = append(m.calls, "Extract:"+template)
	if m.ExtractFn != nil {
		return m.ExtractFn(template)
	}
	return nil
}

func (m *mockTemplates) ExtractBackendConfig(context.Context, *model.Workspace) error {
	m.calls = append(m.calls, "Backend")
	if m.BackendFn != nil {
		return m.BackendFn()
	}
	return nil
}

func (m *mockTemplates) ExtractAllVariables(context.Context, *model.Workspace) error {
	m.calls = append(m.calls, "AllVariables")
	if m.AllVariablesFn != nil {
		return m.AllVariablesFn()
	}
	return nil
}

type mockReview struct {
	created   int
	approved  []int
	CreateFn  func(acronym, user string) (*model.ReviewRequest, error)
	ApproveFn func(id int) error
}

func (m *mockReview) CreateOrReuse(_ context.Context, acronym, user string) (*model.ReviewRequest, error) {
	m.created++
	if m.CreateFn != nil {
		return m.CreateFn(acronym, user)
	}
	return &model.ReviewRequest{WorkspaceAcronym: acronym, URL: "https://example.com/pr/42", ID: 42}, nil
}

func (m *mockReview) AutoApprove(_ context.Context, id int, _ string) error {
	m.approved = append(m.approved, id)
	if m.ApproveFn != nil {
		return m.ApproveFn(id)
	}
	return nil
}

type mockMetrics struct {
	events []model.RepositoryUpdateEvent
	runs   []model.RunStatus
}

func (m *mockMetrics) ObserveEvent(_ string, ev model.RepositoryUpdateEvent) {
	m.events = append(m.events, ev)
}

func (m *mockMetrics) ObserveRun(_ string, status model.RunStatus, _ float64) {
	m.runs = append(m.runs, status)
}
