// Package vcs gives the addons access to component repositories.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/omprussia/weblate-omp/internal/trans"
)

// Repository is the VCS collaborator of a component
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository
type Repository interface {
	// ListUpstreamChangedFiles fetches the upstream branch and returns the
	// paths it changed since it diverged from the local branch.
	ListUpstreamChangedFiles(ctx context.Context, component *trans.Component) ([]string, error)

	// Update fast-forwards the local branch to upstream and returns the
	// revision checked out before the update.
	Update(ctx context.Context, component *trans.Component) (string, error)

	// ReadFile returns the content of path at the local HEAD.
	ReadFile(ctx context.Context, component *trans.Component, path string) ([]byte, error)
}

// gitRepository implements Repository with go-git working copies stored
// under root/<project>/<component>
type gitRepository struct {
	root   string
	remote string

	locks sync.Map // working copy path -> *sync.Mutex
}

// NewGitRepository returns a Repository keeping working copies under root
func NewGitRepository(root, remote string) Repository {
	if remote == "" {
		remote = git.DefaultRemoteName
	}
	return &gitRepository{root: root, remote: remote}
}

func (r *gitRepository) path(c *trans.Component) string {
	return filepath.Join(r.root, c.ProjectSlug, c.Slug)
}

func (r *gitRepository) lock(path string) func() {
	v, _ := r.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// open returns the working copy of c, cloning it on first use
func (r *gitRepository) open(ctx context.Context, c *trans.Component) (*git.Repository, error) {
	path := r.path(c)

	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open repository %s: %w", path, err)
	}
	if c.Repo == "" {
		return nil, fmt.Errorf("component %s has no repository configured", c.FullSlug())
	}

	opts := &git.CloneOptions{
		URL:        c.Repo,
		RemoteName: r.remote,
	}
	if c.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.Branch)
		opts.SingleBranch = true
	}

	start := time.Now()
	repo, err = git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}
	slog.Info("Cloned component repository",
		"component", c.FullSlug(), "path", path, "duration", time.Since(start).String())
	return repo, nil
}

func (r *gitRepository) fetch(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{RemoteName: r.remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s: %w", r.remote, err)
	}
	return nil
}

// branch returns the local branch name of the component
func branch(repo *git.Repository, c *trans.Component) (string, error) {
	if c.Branch != "" {
		return c.Branch, nil
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached and component has no branch")
	}
	return head.Name().Short(), nil
}

func (r *gitRepository) commits(repo *git.Repository, c *trans.Component) (*object.Commit, *object.Commit, error) {
	name, err := branch(repo, c)
	if err != nil {
		return nil, nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	local, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get local commit: %w", err)
	}

	upRef, err := repo.Reference(plumbing.NewRemoteReferenceName(r.remote, name), true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve upstream branch %s/%s: %w", r.remote, name, err)
	}
	upstream, err := repo.CommitObject(upRef.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get upstream commit: %w", err)
	}
	return local, upstream, nil
}

// ListUpstreamChangedFiles implements Repository
func (r *gitRepository) ListUpstreamChangedFiles(ctx context.Context, c *trans.Component) ([]string, error) {
	unlock := r.lock(r.path(c))
	defer unlock()

	repo, err := r.open(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := r.fetch(ctx, repo); err != nil {
		return nil, err
	}

	local, upstream, err := r.commits(repo, c)
	if err != nil {
		return nil, err
	}
	if local.Hash == upstream.Hash {
		return nil, nil
	}

	// Only changes made upstream since the branches diverged count.
	bases, err := local.MergeBase(upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to find merge base: %w", err)
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("local and upstream branches share no history")
	}

	baseTree, err := bases[0].Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get merge base tree: %w", err)
	}
	upTree, err := upstream.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream tree: %w", err)
	}

	changes, err := baseTree.DiffContext(ctx, upTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var files []string
	for _, ch := range changes {
		for _, name := range []string{ch.From.Name, ch.To.Name} {
			if name != "" && !slices.Contains(files, name) {
				files = append(files, name)
			}
		}
	}
	slices.Sort(files)

	slog.Debug("Listed upstream changes", "component", c.FullSlug(), "files", len(files))
	return files, nil
}

// Update implements Repository
func (r *gitRepository) Update(ctx context.Context, c *trans.Component) (string, error) {
	unlock := r.lock(r.path(c))
	defer unlock()

	repo, err := r.open(ctx, c)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	previous := head.Hash().String()

	name, err := branch(repo, c)
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    r.remote,
		ReferenceName: plumbing.NewBranchReferenceName(name),
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("failed to update %s: %w", c.FullSlug(), err)
	}

	return previous, nil
}

// ReadFile implements Repository
func (r *gitRepository) ReadFile(ctx context.Context, c *trans.Component, path string) ([]byte, error) {
	unlock := r.lock(r.path(c))
	defer unlock()

	repo, err := r.open(ctx, c)
	if err != nil {
		return nil, err
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}
	file, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return []byte(content), nil
}
