package vcs

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-logr/logr"

	"github.com/hochfrequenz/npm-release/internal/shell"
)

// GitRepository reads and rewrites local state with go-git and pushes with
// the git executable, so pushes use the operator's credential helpers and
// ssh configuration
type GitRepository struct {
	dir    string
	runner shell.Runner
	log    logr.Logger

	repo *git.Repository
}

// NewGitRepository creates a GitRepository for the repository containing dir.
// The repository is opened on first use.
func NewGitRepository(dir string, runner shell.Runner, log logr.Logger) *GitRepository {
	return &GitRepository{dir: dir, runner: runner, log: log}
}

func (g *GitRepository) open() (*git.Repository, error) {
	if g.repo != nil {
		return g.repo, nil
	}
	repo, err := git.PlainOpenWithOptions(g.dir, &git.PlainOpenOptions{
		DetectDotGit: true,
		// Linked worktrees keep branches and tags in the main repository
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", g.dir, ErrNotARepository)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	g.repo = repo
	return repo, nil
}

// CurrentBranch returns the short name of the checked-out branch, or
// DetachedHead when HEAD does not point at a branch
func (g *GitRepository) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}

	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		// An unborn branch still counts as checked out.
		return head.Target().Short(), nil
	}
	return DetachedHead, nil
}

// BranchExists reports whether name exists as a local branch or as a
// remote-tracking branch of any remote
func (g *GitRepository) BranchExists(ctx context.Context, name string) (bool, error) {
	repo, err := g.open()
	if err != nil {
		return false, err
	}

	if _, err := repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
		return true, nil
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, fmt.Errorf("looking up branch %s: %w", name, err)
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return false, fmt.Errorf("listing remotes: %w", err)
	}
	for _, r := range remotes {
		ref := plumbing.NewRemoteReferenceName(r.Config().Name, name)
		if _, err := repo.Reference(ref, true); err == nil {
			return true, nil
		}
	}
	return false, nil
}

// Head returns the commit hash HEAD resolves to
func (g *GitRepository) Head(ctx context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// TagExists reports whether a tag with the given name exists locally
func (g *GitRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	repo, err := g.open()
	if err != nil {
		return false, err
	}

	_, err = repo.Tag(tag)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrTagNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("looking up tag %s: %w", tag, err)
	}
}

// DeleteTag removes a local tag
func (g *GitRepository) DeleteTag(ctx context.Context, tag string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	if err := repo.DeleteTag(tag); err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return fmt.Errorf("%s: %w", tag, ErrTagNotFound)
		}
		return fmt.Errorf("deleting tag %s: %w", tag, err)
	}
	g.log.V(1).Info("deleted tag", "tag", tag)
	return nil
}

// ResetHard moves the current branch, index and working tree to commit
func (g *GitRepository) ResetHard(ctx context.Context, commit string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	hash := plumbing.NewHash(commit)
	if _, err := repo.CommitObject(hash); err != nil {
		return fmt.Errorf("resolving commit %s: %w", commit, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset --hard %s: %w", commit, err)
	}
	g.log.V(1).Info("reset branch", "commit", commit)
	return nil
}

// PushBranch pushes branch to remote
func (g *GitRepository) PushBranch(ctx context.Context, remote, branch string) error {
	return g.push(ctx, remote, branch)
}

// PushTag pushes the single tag reference to remote
func (g *GitRepository) PushTag(ctx context.Context, remote, tag string) error {
	return g.push(ctx, remote, plumbing.NewTagReferenceName(tag).String())
}

func (g *GitRepository) push(ctx context.Context, remote, refspec string) error {
	_, err := g.runner.Run(ctx, shell.Command{
		Name: "git",
		Args: []string{"push", remote, refspec},
		Dir:  g.dir,
	}, shell.Options{})
	if err != nil {
		return fmt.Errorf("git push %s %s: %w", remote, refspec, err)
	}
	return nil
}
