// Package vcs is the version-control collaborator of a release: it answers
// branch queries, undoes a version bump and pushes the result
package vcs

import (
	"context"
	"errors"
)

var (
	// ErrNotARepository indicates the directory is not inside a git repository
	ErrNotARepository = errors.New("not a git repository")

	// ErrTagNotFound indicates the tag to delete does not exist
	ErrTagNotFound = errors.New("tag not found")

	// ErrNoCommits indicates HEAD does not point at a commit yet
	ErrNoCommits = errors.New("repository has no commits")
)

// DetachedHead is reported as the current branch when HEAD is detached
const DetachedHead = "HEAD"

// Repository is the subset of version control a release needs
type Repository interface {
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	Head(ctx context.Context) (string, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	DeleteTag(ctx context.Context, tag string) error
	ResetHard(ctx context.Context, commit string) error
	PushBranch(ctx context.Context, remote, branch string) error
	PushTag(ctx context.Context, remote, tag string) error
}

// IsNotARepository returns true if err is ErrNotARepository
func IsNotARepository(err error) bool {
	return errors.Is(err, ErrNotARepository)
}
