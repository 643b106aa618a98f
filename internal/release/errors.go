package release

import (
	"fmt"
	"strings"

	"github.com/hochfrequenz/npm-release/internal/domain"
)

// Kind classifies why a release stopped
type Kind string

const (
	KindUsage                 Kind = "usage"
	KindNotAGitRepo           Kind = "not_a_git_repo"
	KindNoMainBranchFound     Kind = "no_main_branch_found"
	KindWrongBranch           Kind = "wrong_branch"
	KindPrivatePackage        Kind = "private_package"
	KindBumpFailed            Kind = "bump_failed"
	KindUnsupportedCredential Kind = "unsupported_credential"
	KindNotLoggedIn           Kind = "not_logged_in"
	KindNoPublishAccess       Kind = "no_publish_access"
	KindPublishFailed         Kind = "publish_failed"
	KindRollbackIncomplete    Kind = "rollback_incomplete"
	KindPushFailed            Kind = "push_failed"
)

// Exit codes of the release command
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitPublishFailed      = 2
	ExitRollbackIncomplete = 3
)

// Error is a failed release. Fields other than Kind and Err are filled in
// when they are known for that kind.
type Error struct {
	Kind Kind
	Err  error

	// WrongBranch
	Expected string
	Actual   string

	// NoMainBranchFound
	Candidates []string

	// NotLoggedIn, NoPublishAccess
	Identity string
	Package  string
	Owners   []domain.Maintainer

	// Unpublished is set when the registry does not know the package yet
	Unpublished bool

	// RollbackIncomplete
	Tag    string
	Commit string

	// Cause is the failure that triggered the rollback
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoMainBranchFound:
		return fmt.Sprintf("no release branch found (tried %s)", strings.Join(e.Candidates, ", "))
	case KindWrongBranch:
		return fmt.Sprintf("releases must be made from branch %q, but %q is checked out", e.Expected, e.Actual)
	case KindPrivatePackage:
		return fmt.Sprintf("%s is marked private in its manifest and cannot be published", e.Package)
	case KindNotLoggedIn:
		return "publish failed: not logged in to the registry"
	case KindNoPublishAccess:
		return fmt.Sprintf("publish failed: %s does not have publish access to %s", e.Identity, e.Package)
	case KindRollbackIncomplete:
		return fmt.Sprintf("rollback incomplete (tag %s, commit %s): %v", e.Tag, e.Commit, e.Err)
	}

	prefix := map[Kind]string{
		KindUsage:                 "usage",
		KindNotAGitRepo:           "not a git repository",
		KindBumpFailed:            "version bump failed",
		KindUnsupportedCredential: "one-time password not supported",
		KindPublishFailed:         "publish failed",
	}[e.Kind]
	if prefix == "" {
		prefix = string(e.Kind)
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps the error kind to a process exit status
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindPublishFailed:
		return ExitPublishFailed
	case KindRollbackIncomplete:
		return ExitRollbackIncomplete
	case KindPushFailed:
		return ExitOK
	default:
		return ExitFailure
	}
}

// Authorization reports whether the failure is an authorization problem
func (e *Error) Authorization() bool {
	return e.Kind == KindNotLoggedIn || e.Kind == KindNoPublishAccess
}
