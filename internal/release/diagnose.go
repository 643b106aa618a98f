package release

import (
	"context"
	"errors"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/registry"
)

// diagnose explains a publish failure after a successful rollback by
// checking who is logged in and whether they may publish the package
func (o *Orchestrator) diagnose(ctx context.Context, out *Outcome, publishErr error) error {
	err := o.classify(ctx, out, publishErr)
	out.enter(domain.StateDiagnosedFailure)
	out.enter(domain.StateDone)
	return err
}

func (o *Orchestrator) classify(ctx context.Context, out *Outcome, publishErr error) error {
	status, err := o.authorize(ctx, out)
	if errors.Is(err, registry.ErrNotFound) {
		return &Error{Kind: KindPublishFailed, Err: publishErr, Identity: out.Identity, Package: out.Package, Unpublished: true}
	}
	if err != nil {
		o.log.Error(err, "could not determine publish access")
		return &Error{Kind: KindPublishFailed, Err: publishErr}
	}

	switch status {
	case domain.AuthAnonymous:
		return &Error{Kind: KindNotLoggedIn, Err: publishErr, Package: out.Package}
	case domain.AuthNoAccess:
		return &Error{
			Kind:     KindNoPublishAccess,
			Err:      publishErr,
			Identity: out.Identity,
			Package:  out.Package,
			Owners:   out.Owners,
		}
	default:
		return &Error{Kind: KindPublishFailed, Err: publishErr, Identity: out.Identity, Package: out.Package}
	}
}

// authorize looks up the registry identity and its access to the package,
// storing what it finds on the outcome
func (o *Orchestrator) authorize(ctx context.Context, out *Outcome) (domain.AuthorizationStatus, error) {
	identity, err := o.registry.WhoAmI(ctx)
	if err != nil {
		return domain.AuthUnknown, err
	}
	out.Identity = identity
	if identity == "" {
		out.Auth = domain.AuthAnonymous
		return out.Auth, nil
	}

	owners, err := o.registry.Owners(ctx, out.Package)
	if err != nil {
		return domain.AuthUnknown, err
	}
	out.Owners = owners

	collaborators, err := o.registry.Collaborators(ctx, out.Package)
	if err != nil {
		return domain.AuthUnknown, err
	}

	out.Auth = domain.Classify(identity, owners, collaborators)
	o.log.V(1).Info("resolved publish access", "identity", identity, "auth", out.Auth)
	return out.Auth, nil
}
