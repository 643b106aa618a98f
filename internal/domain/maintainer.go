package domain

import (
	"fmt"
	"strings"
)

// Maintainer is a package owner as listed by the registry
type Maintainer struct {
	Login string `json:"login" yaml:"login"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// String formats the maintainer the way registries print owners
func (m Maintainer) String() string {
	if m.Email == "" {
		return m.Login
	}
	return fmt.Sprintf("%s <%s>", m.Login, m.Email)
}

// Collaborator is a registry user with an access level on a package
type Collaborator struct {
	Login  string `json:"login" yaml:"login"`
	Access string `json:"access" yaml:"access"`
}

// CanWrite reports whether the access level includes write permission.
// Registries spell this "read-write" or "write".
func (c Collaborator) CanWrite() bool {
	return strings.Contains(c.Access, "write")
}

// Classify derives the authorization status of identity from the owner
// and collaborator lists. An empty identity is anonymous.
func Classify(identity string, owners []Maintainer, collaborators []Collaborator) AuthorizationStatus {
	if identity == "" {
		return AuthAnonymous
	}
	for _, o := range owners {
		if o.Login == identity {
			return AuthOwner
		}
	}
	for _, c := range collaborators {
		if c.Login == identity && c.CanWrite() {
			return AuthCollaborator
		}
	}
	return AuthNoAccess
}
