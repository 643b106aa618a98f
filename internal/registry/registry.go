// Package registry is the package-registry collaborator of a release.
// Implementations return parsed identities rather than raw command output.
package registry

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/hochfrequenz/npm-release/internal/domain"
)

// ErrNotFound indicates the package is unknown to the registry
var ErrNotFound = errors.New("package not found in registry")

// PublishOptions configure a publish
type PublishOptions struct {
	// OTP is a one-time password for accounts with two-factor auth
	OTP string
}

// Client is the subset of a registry client a release needs
type Client interface {
	// WhoAmI returns the logged-in identity, or "" when anonymous
	WhoAmI(ctx context.Context) (string, error)
	Owners(ctx context.Context, pkg string) ([]domain.Maintainer, error)
	Collaborators(ctx context.Context, pkg string) ([]domain.Collaborator, error)
	// Bump writes the next version to the manifest and commits and tags it
	Bump(ctx context.Context, level domain.BumpLevel) error
	Publish(ctx context.Context, opts PublishOptions) error
	ClientVersion(ctx context.Context) (*semver.Version, error)
}

var otpConstraint = mustConstraint(">= 5.5.1")

// SupportsOTP reports whether a client of version v accepts a one-time
// password on publish
func SupportsOTP(v *semver.Version) bool {
	return v != nil && otpConstraint.Check(v)
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
