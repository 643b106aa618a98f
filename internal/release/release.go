// Package release drives a single package release: version bump, publish
// and push, undoing the bump when the publish does not go through.
//
// The repository ends each run either fully released or as it was before
// the run. The one exception is a rollback whose own commands fail, which
// is reported as KindRollbackIncomplete and never repaired automatically.
package release

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/manifest"
	"github.com/hochfrequenz/npm-release/internal/registry"
	"github.com/hochfrequenz/npm-release/internal/vcs"
)

// DefaultCandidates are probed in order when no release branch is configured
var DefaultCandidates = []string{"main", "master"}

// ManifestReader loads the current package manifest
type ManifestReader interface {
	Read() (*manifest.Manifest, error)
}

// Options are the resolved run parameters
type Options struct {
	// Branch overrides branch detection
	Branch     string
	Candidates []string
	Remote     string
	TagPrefix  string
	OTP        string
	DryRun     bool
}

// Deps are the collaborators of a release
type Deps struct {
	Repo     vcs.Repository
	Registry registry.Client
	Manifest ManifestReader
	Log      logr.Logger
}

// Orchestrator runs releases
type Orchestrator struct {
	repo     vcs.Repository
	registry registry.Client
	manifest ManifestReader
	log      logr.Logger
	opts     Options
}

// New creates an Orchestrator
func New(deps Deps, opts Options) *Orchestrator {
	if len(opts.Candidates) == 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	return &Orchestrator{
		repo:     deps.Repo,
		registry: deps.Registry,
		manifest: deps.Manifest,
		log:      deps.Log,
		opts:     opts,
	}
}

// Release bumps, publishes and pushes. The outcome is always returned; err
// is a *Error when the release did not complete. A failed push is not an
// error: it is reported in Outcome.Warnings.
func (o *Orchestrator) Release(ctx context.Context, level domain.BumpLevel) (*Outcome, error) {
	out := &Outcome{Level: level, DryRun: o.opts.DryRun}
	out.enter(domain.StateInit)

	if !level.Valid() {
		return out, &Error{Kind: KindUsage, Err: fmt.Errorf("invalid bump level %q", level)}
	}

	branch, err := o.resolveBranch(ctx)
	if err != nil {
		return out, err
	}
	out.Branch = branch
	out.enter(domain.StateBranchResolved)
	o.log.Info("resolved release branch", "branch", branch)

	if err := o.checkBranch(ctx, branch); err != nil {
		return out, err
	}
	out.enter(domain.StateBranchValidated)

	current, err := o.manifest.Read()
	if err != nil {
		return out, &Error{Kind: KindBumpFailed, Err: err}
	}
	out.Package = current.Name
	out.PreviousVersion = current.Version
	if current.Private {
		return out, &Error{Kind: KindPrivatePackage, Package: current.Name}
	}

	base, err := o.repo.Head(ctx)
	if err != nil {
		if vcs.IsNotARepository(err) {
			return out, &Error{Kind: KindNotAGitRepo, Err: err}
		}
		return out, &Error{Kind: KindBumpFailed, Err: err}
	}
	out.BaseCommit = base

	next, err := current.NextVersion(level)
	if err != nil {
		return out, &Error{Kind: KindBumpFailed, Err: err}
	}
	if err := o.checkTagFree(ctx, o.opts.TagPrefix+next); err != nil {
		return out, err
	}

	if o.opts.DryRun {
		return o.dryRun(ctx, out, next)
	}
	return o.run(ctx, out)
}

// checkTagFree fails when the tag the bump would create already exists,
// which would make the registry client refuse to bump
func (o *Orchestrator) checkTagFree(ctx context.Context, tag string) error {
	exists, err := o.repo.TagExists(ctx, tag)
	if err != nil {
		if vcs.IsNotARepository(err) {
			return &Error{Kind: KindNotAGitRepo, Err: err}
		}
		return &Error{Kind: KindBumpFailed, Err: err}
	}
	if exists {
		return &Error{Kind: KindBumpFailed, Tag: tag, Err: fmt.Errorf("tag %s already exists", tag)}
	}
	return nil
}

func (o *Orchestrator) resolveBranch(ctx context.Context) (string, error) {
	if o.opts.Branch != "" {
		return o.opts.Branch, nil
	}
	for _, name := range o.opts.Candidates {
		ok, err := o.repo.BranchExists(ctx, name)
		if err != nil {
			return "", &Error{Kind: KindNotAGitRepo, Err: err}
		}
		if ok {
			return name, nil
		}
	}
	return "", &Error{Kind: KindNoMainBranchFound, Candidates: o.opts.Candidates}
}

func (o *Orchestrator) checkBranch(ctx context.Context, expected string) error {
	actual, err := o.repo.CurrentBranch(ctx)
	if err != nil {
		return &Error{Kind: KindNotAGitRepo, Err: err}
	}
	if actual != expected {
		return &Error{Kind: KindWrongBranch, Expected: expected, Actual: actual}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, out *Outcome) (*Outcome, error) {
	o.lookupIdentity(ctx, out)
	o.log.Info("bumping version", "level", out.Level, "from", out.PreviousVersion, "identity", out.Identity)
	if err := o.registry.Bump(ctx, out.Level); err != nil {
		out.record(domain.StepBump, domain.StepFailed, "", err)
		return out, &Error{Kind: KindBumpFailed, Err: err}
	}
	out.enter(domain.StateBumped)

	bumped, err := o.manifest.Read()
	if err != nil {
		out.record(domain.StepBump, domain.StepOK, "", nil)
		return out, o.abort(ctx, out, &Error{Kind: KindBumpFailed, Err: fmt.Errorf("reading bumped manifest: %w", err)})
	}
	out.Version = bumped.Version
	out.Tag = bumped.TagName(o.opts.TagPrefix)
	out.record(domain.StepBump, domain.StepOK, out.PreviousVersion+" -> "+out.Version, nil)

	if o.opts.OTP != "" {
		if err := o.checkCredentialSupport(ctx); err != nil {
			out.record(domain.StepCapability, domain.StepFailed, "", err)
			return out, o.abort(ctx, out, &Error{Kind: KindUnsupportedCredential, Err: err})
		}
		out.record(domain.StepCapability, domain.StepOK, "one-time password supported", nil)
	}

	o.log.Info("publishing", "package", out.Package, "version", out.Version)
	if err := o.registry.Publish(ctx, registry.PublishOptions{OTP: o.opts.OTP}); err != nil {
		out.record(domain.StepPublish, domain.StepFailed, "", err)
		if rbErr := o.rollback(ctx, out); rbErr != nil {
			rbErr.Cause = err
			return out, rbErr
		}
		return out, o.diagnose(ctx, out, err)
	}
	out.record(domain.StepPublish, domain.StepOK, out.Package+"@"+out.Version, nil)
	out.enter(domain.StatePublished)

	o.push(ctx, out)
	out.enter(domain.StatePushAttempted)
	out.enter(domain.StateDone)
	return out, nil
}

// abort rolls back a bump that must not be published and returns the
// error to report: the original failure, or the rollback failure if the
// rollback itself did not complete
func (o *Orchestrator) abort(ctx context.Context, out *Outcome, cause *Error) error {
	if rbErr := o.rollback(ctx, out); rbErr != nil {
		rbErr.Cause = cause
		return rbErr
	}
	out.enter(domain.StateDone)
	return cause
}

// lookupIdentity records who the release is published as. A failed
// lookup does not stop the release; publish reports the real problem.
func (o *Orchestrator) lookupIdentity(ctx context.Context, out *Outcome) {
	identity, err := o.registry.WhoAmI(ctx)
	if err != nil {
		o.log.V(1).Info("could not determine registry identity", "error", err.Error())
		return
	}
	out.Identity = identity
}

func (o *Orchestrator) checkCredentialSupport(ctx context.Context) error {
	v, err := o.registry.ClientVersion(ctx)
	if err != nil {
		return fmt.Errorf("determining registry client version: %w", err)
	}
	if !registry.SupportsOTP(v) {
		return fmt.Errorf("registry client %s does not accept a one-time password", v)
	}
	return nil
}

// push sends the branch and tag to the remote. Publishing cannot be undone,
// so failures become a warning asking the operator to push by hand.
func (o *Orchestrator) push(ctx context.Context, out *Outcome) {
	var errs error

	if err := o.repo.PushBranch(ctx, o.opts.Remote, out.Branch); err != nil {
		out.record(domain.StepPushBranch, domain.StepFailed, out.Branch, err)
		errs = multierr.Append(errs, err)
	} else {
		out.record(domain.StepPushBranch, domain.StepOK, out.Branch, nil)
	}

	if err := o.repo.PushTag(ctx, o.opts.Remote, out.Tag); err != nil {
		out.record(domain.StepPushTag, domain.StepFailed, out.Tag, err)
		errs = multierr.Append(errs, err)
	} else {
		out.record(domain.StepPushTag, domain.StepOK, out.Tag, nil)
	}

	if errs != nil {
		o.log.Error(errs, "push failed", "branch", out.Branch, "tag", out.Tag)
		msg := fmt.Sprintf("published %s@%s but pushing failed; push branch %s and tag %s to %s manually: %v",
			out.Package, out.Version, out.Branch, out.Tag, o.opts.Remote, errs)
		out.Warnings = append(out.Warnings, Warning{
			Kind:    KindPushFailed,
			Message: msg,
			Branch:  out.Branch,
			Tag:     out.Tag,
			Remote:  o.opts.Remote,
		})
	}
}
