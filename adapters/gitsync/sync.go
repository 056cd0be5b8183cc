package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
	"github.com/yaegashi/resourceprovisioner/internal/naming"
)

const remoteName = "origin"

// Config configures a Sync.
type Config struct {
	Layout             naming.Layout
	ModuleURL          string
	ModuleBranch       string
	ModuleAuthenticate bool
	InfrastructureURL  string
	MainBranch         string
	// Username is sent with the access token for HTTP basic auth.
	Username string
	// Credentials supplies the access token. Nil disables authentication.
	Credentials model.TokenProvider
}

// Sync implements model.RepositorySyncPort on go-git. It holds no per-run
// state: every working copy lives under Layout keyed by workspace acronym.
type Sync struct {
	cfg Config
	now func() time.Time
}

// New returns a Sync for cfg.
func New(cfg Config) *Sync {
	if cfg.MainBranch == "" {
		cfg.MainBranch = "main"
	}
	return &Sync{cfg: cfg, now: time.Now}
}

func (s *Sync) ModuleRepositoryPath(acronym string) string {
	return s.cfg.Layout.ModuleRepository(acronym)
}

func (s *Sync) InfrastructureRepositoryPath(acronym string) string {
	return s.cfg.Layout.InfrastructureRepository(acronym)
}

func (s *Sync) auth(ctx context.Context) (transport.AuthMethod, error) {
	if s.cfg.Credentials == nil {
		return nil, nil
	}
	token, err := s.cfg.Credentials.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire access token: %w", err)
	}
	return &githttp.BasicAuth{Username: s.cfg.Username, Password: token}, nil
}

// EnsureModuleRepository clones the module repository if it is absent. An
// existing clone is used as is.
func (s *Sync) EnsureModuleRepository(ctx context.Context, acronym string) (err error) {
	ctx, end := logging.Span(ctx, "GIT", "EnsureModuleRepository", "workspace", acronym)
	defer func() { end(err) }()
	logger := logging.FromContext(ctx)

	path := s.ModuleRepositoryPath(acronym)
	if ok, err := repositoryExists(path); err != nil {
		return fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
	} else if ok {
		logger.Debug(ctx, "module repository already present", "path", path)
		return nil
	}

	var auth transport.AuthMethod
	if s.cfg.ModuleAuthenticate {
		if auth, err = s.auth(ctx); err != nil {
			return fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
		}
	}

	logger.Info(ctx, "cloning module repository", "url", s.cfg.ModuleURL, "path", path)
	repo, err := clone(ctx, path, s.cfg.ModuleURL, auth)
	if err != nil {
		return fmt.Errorf("%w: clone %s: %w", model.ErrRepositoryUnavailable, s.cfg.ModuleURL, err)
	}

	if err := s.checkoutModuleBranch(ctx, repo); err != nil {
		return fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
	}
	return nil
}

// checkoutModuleBranch switches to the configured module branch when it
// differs from the cloned default and exists on the remote.
func (s *Sync) checkoutModuleBranch(ctx context.Context, repo *gogit.Repository) error {
	branch := s.cfg.ModuleBranch
	if branch == "" {
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve module HEAD: %w", err)
	}
	if head.Name().Short() == branch {
		return nil
	}
	logger := logging.FromContext(ctx)
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		logger.Info(ctx, "module branch does not exist, keeping default branch", "branch", branch, "default", head.Name().Short())
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve module branch %s: %w", branch, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.Checkout(&gogit.CheckoutOptions{
		Hash:   remoteRef.Hash(),
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("checkout module branch %s: %w", branch, err)
	}
	return nil
}

// EnsureInfrastructureRepository clones the infrastructure repository with
// credentials if it is absent.
func (s *Sync) EnsureInfrastructureRepository(ctx context.Context, acronym string) (err error) {
	ctx, end := logging.Span(ctx, "GIT", "EnsureInfrastructureRepository", "workspace", acronym)
	defer func() { end(err) }()

	path := s.InfrastructureRepositoryPath(acronym)
	if ok, err := repositoryExists(path); err != nil {
		return fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
	} else if ok {
		return nil
	}
	auth, err := s.auth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrRepositoryUnavailable, err)
	}
	logging.FromContext(ctx).Info(ctx, "cloning infrastructure repository", "url", s.cfg.InfrastructureURL, "path", path)
	if _, err := clone(ctx, path, s.cfg.InfrastructureURL, auth); err != nil {
		return fmt.Errorf("%w: clone %s: %w", model.ErrRepositoryUnavailable, s.cfg.InfrastructureURL, err)
	}
	return nil
}

// CheckoutWorkspaceBranch checks out the branch named acronym, creating it
// when absent, and fast-forwards it to its remote counterpart. A missing
// remote counterpart is normal for a first run.
func (s *Sync) CheckoutWorkspaceBranch(ctx context.Context, acronym string) (err error) {
	ctx, end := logging.Span(ctx, "GIT", "CheckoutWorkspaceBranch", "workspace", acronym)
	defer func() { end(err) }()
	logger := logging.FromContext(ctx)

	if strings.EqualFold(acronym, s.cfg.MainBranch) {
		return fmt.Errorf("%w: acronym %q names the main branch", model.ErrWorkspaceInvalid, acronym)
	}
	repo, err := s.openInfrastructure(acronym)
	if err != nil {
		return err
	}
	auth, err := s.auth(ctx)
	if err != nil {
		return err
	}
	if err := fetch(ctx, repo, auth); err != nil {
		return fmt.Errorf("%w: fetch %s: %w", model.ErrRepositoryUnavailable, remoteName, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := discard(ctx, wt); err != nil {
		return fmt.Errorf("discard leftover changes: %w", err)
	}
	local := plumbing.NewBranchReferenceName(acronym)
	_, err = repo.Reference(local, true)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		base, err := s.branchBase(repo, acronym)
		if err != nil {
			return err
		}
		logger.Info(ctx, "branch does not exist, creating it now", "branch", acronym, "base", base.String())
		if err := wt.Checkout(&gogit.CheckoutOptions{Hash: base, Branch: local, Create: true}); err != nil {
			return fmt.Errorf("create branch %s: %w", acronym, err)
		}
	case err != nil:
		return fmt.Errorf("resolve branch %s: %w", acronym, err)
	default:
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: local}); err != nil {
			return fmt.Errorf("checkout branch %s: %w", acronym, err)
		}
	}
	logger.Info(ctx, "branch checked out", "branch", acronym)

	if err := setUpstream(repo, acronym); err != nil {
		return err
	}
	return s.fastForward(ctx, repo, wt, acronym)
}

// branchBase picks the start point of a new workspace branch: the remote
// counterpart when a previous run already pushed one, else the default
// branch tip.
func (s *Sync) branchBase(repo *gogit.Repository, acronym string) (plumbing.Hash, error) {
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, acronym), true); err == nil {
		return ref.Hash(), nil
	}
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.cfg.MainBranch),
		plumbing.NewRemoteReferenceName(remoteName, s.cfg.MainBranch),
	} {
		if ref, err := repo.Reference(name, true); err == nil {
			return ref.Hash(), nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("default branch %s not found", s.cfg.MainBranch)
}

func (s *Sync) fastForward(ctx context.Context, repo *gogit.Repository, wt *gogit.Worktree, acronym string) error {
	logger := logging.FromContext(ctx)
	upstream, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, acronym), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		logger.Info(ctx, "no upstream updates found", "branch", acronym)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve upstream of %s: %w", acronym, err)
	}
	head, err := repo.Head()
	if err != nil {
		return err
	}
	if head.Hash() == upstream.Hash() {
		logger.Info(ctx, "branch is up to date", "branch", acronym)
		return nil
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return err
	}
	upCommit, err := repo.CommitObject(upstream.Hash())
	if err != nil {
		return err
	}
	if ahead, err := upCommit.IsAncestor(headCommit); err != nil {
		return err
	} else if ahead {
		logger.Info(ctx, "local branch is ahead of upstream", "branch", acronym)
		return nil
	}
	if ff, err := headCommit.IsAncestor(upCommit); err != nil {
		return err
	} else if !ff {
		return fmt.Errorf("branch %s has diverged from %s/%s", acronym, remoteName, acronym)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: upstream.Hash(), Mode: gogit.MergeReset}); err != nil {
		return fmt.Errorf("fast-forward %s: %w", acronym, err)
	}
	logger.Info(ctx, "branch fast-forwarded", "branch", acronym, "commit", upstream.Hash().String())
	return nil
}

// Push pushes the workspace branch to origin, creating it remotely if needed.
func (s *Sync) Push(ctx context.Context, acronym string) (err error) {
	ctx, end := logging.Span(ctx, "GIT", "Push", "workspace", acronym)
	defer func() { end(err) }()

	repo, err := s.openInfrastructure(acronym)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrPushFailed, err)
	}
	auth, err := s.auth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrPushFailed, err)
	}
	if err := setUpstream(repo, acronym); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPushFailed, err)
	}
	local := plumbing.NewBranchReferenceName(acronym)
	logging.FromContext(ctx).Info(ctx, "pushing branch", "branch", local.String())
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(local.String() + ":" + local.String())},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: push %s: %w", model.ErrPushFailed, local, err)
	}
	return nil
}

// Commit stages every change in the infrastructure working copy and commits
// it as author. A clean tree yields model.ErrNoChangesDetected.
func (s *Sync) Commit(ctx context.Context, acronym, author, message string) error {
	logger := logging.FromContext(ctx)
	repo, err := s.openInfrastructure(acronym)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		logger.Info(ctx, "no changes to commit", "workspace", acronym)
		return fmt.Errorf("%w in %s", model.ErrNoChangesDetected, acronym)
	}
	sig := &object.Signature{Name: author, Email: author, When: s.now()}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Info(ctx, "changes committed", "workspace", acronym, "author", author, "commit", hash.String())
	return nil
}

// DiscardChanges drops uncommitted edits and untracked files from the
// infrastructure working copy, restoring the checked out commit.
func (s *Sync) DiscardChanges(ctx context.Context, acronym string) error {
	repo, err := s.openInfrastructure(acronym)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return discard(ctx, wt)
}

func discard(ctx context.Context, wt *gogit.Worktree) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	logging.FromContext(ctx).Info(ctx, "discarding uncommitted changes", "files", len(status))
	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}

// BranchTip returns the commit id at the tip of the local workspace branch.
func (s *Sync) BranchTip(_ context.Context, acronym string) (string, error) {
	repo, err := s.openInfrastructure(acronym)
	if err != nil {
		return "", err
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(acronym), true)
	if err != nil {
		return "", fmt.Errorf("branch %s does not exist in %s: %w", acronym, s.InfrastructureRepositoryPath(acronym), err)
	}
	return ref.Hash().String(), nil
}

func (s *Sync) openInfrastructure(acronym string) (*gogit.Repository, error) {
	path := s.InfrastructureRepositoryPath(acronym)
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", model.ErrRepositoryUnavailable, path, err)
	}
	return repo, nil
}

func repositoryExists(path string) (bool, error) {
	_, err := gogit.PlainOpen(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		// A leftover directory from an interrupted clone is discarded.
		if err := os.RemoveAll(path); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, fmt.Errorf("open %s: %w", path, err)
	}
}

func clone(ctx context.Context, path, url string, auth transport.AuthMethod) (*gogit.Repository, error) {
	repo, err := gogit.PlainCloneContext(ctx, path, false, &gogit.CloneOptions{URL: url, Auth: auth})
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, err
	}
	return repo, nil
}

func fetch(ctx context.Context, repo *gogit.Repository, auth transport.AuthMethod) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: remoteName, Auth: auth})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

func setUpstream(repo *gogit.Repository, branch string) error {
	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	cfg.Branches[branch] = &config.Branch{
		Name:   branch,
		Remote: remoteName,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("set upstream of %s: %w", branch, err)
	}
	return nil
}

var _ model.RepositorySyncPort = (*Sync)(nil)
