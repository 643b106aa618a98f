package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/registry"
)

// dryRun performs the read-only checks of a release and records every
// mutating step as skipped
func (o *Orchestrator) dryRun(ctx context.Context, out *Outcome, next string) (*Outcome, error) {
	out.Version = next
	out.Tag = o.opts.TagPrefix + next
	out.record(domain.StepBump, domain.StepSkipped,
		fmt.Sprintf("would bump %s -> %s and tag %s", out.PreviousVersion, next, out.Tag), nil)

	if o.opts.OTP != "" {
		if err := o.checkCredentialSupport(ctx); err != nil {
			out.record(domain.StepCapability, domain.StepFailed, "", err)
			return out, &Error{Kind: KindUnsupportedCredential, Err: err}
		}
		out.record(domain.StepCapability, domain.StepOK, "one-time password supported", nil)
	}

	status, err := o.authorize(ctx, out)
	if errors.Is(err, registry.ErrNotFound) {
		o.log.Info("package is not in the registry yet, this is its first publish", "package", out.Package)
	} else if err != nil {
		o.log.Error(err, "could not determine publish access")
	} else if !status.CanPublish() {
		msg := fmt.Sprintf("%s cannot publish %s", describeIdentity(out.Identity), out.Package)
		out.Warnings = append(out.Warnings, Warning{Kind: authKind(status), Message: msg})
	}

	out.record(domain.StepPublish, domain.StepSkipped, fmt.Sprintf("would publish %s@%s", out.Package, next), nil)
	out.record(domain.StepPushBranch, domain.StepSkipped, fmt.Sprintf("would push %s to %s", out.Branch, o.opts.Remote), nil)
	out.record(domain.StepPushTag, domain.StepSkipped, fmt.Sprintf("would push %s to %s", out.Tag, o.opts.Remote), nil)
	out.enter(domain.StateDone)
	return out, nil
}

func describeIdentity(identity string) string {
	if identity == "" {
		return "anonymous user"
	}
	return identity
}

func authKind(s domain.AuthorizationStatus) Kind {
	if s == domain.AuthAnonymous {
		return KindNotLoggedIn
	}
	return KindNoPublishAccess
}
