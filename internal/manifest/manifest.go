// Package manifest reads the package manifest (package.json) that the
// registry client rewrites on every version bump
package manifest

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"github.com/hochfrequenz/npm-release/internal/domain"
)

// DefaultFile is the manifest name inside a project directory
const DefaultFile = "package.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoVersion is returned for manifests without a version field
var ErrNoVersion = errors.New("manifest has no version")

// Manifest holds the fields of package.json a release cares about
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Private bool   `json:"private,omitempty"`
}

// Read loads and validates the manifest at path
func Read(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoVersion)
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return nil, fmt.Errorf("%s: invalid version %q: %w", path, m.Version, err)
	}
	return &m, nil
}

// TagName returns the tag the registry client creates for this version
func (m *Manifest) TagName(prefix string) string {
	return prefix + m.Version
}

// NextVersion predicts the version a bump of the given level produces.
// A pre-release that already sits on the target release is finalized
// instead of incremented, as npm does: 1.3.0-beta.1 minor is 1.3.0.
func (m *Manifest) NextVersion(level domain.BumpLevel) (string, error) {
	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return "", err
	}

	pre := v.Prerelease() != ""
	var next semver.Version
	switch level {
	case domain.BumpMajor:
		if pre && v.Minor() == 0 && v.Patch() == 0 {
			next = finalize(v)
		} else {
			next = v.IncMajor()
		}
	case domain.BumpMinor:
		if pre && v.Patch() == 0 {
			next = finalize(v)
		} else {
			next = v.IncMinor()
		}
	case domain.BumpPatch:
		next = v.IncPatch()
	default:
		return "", fmt.Errorf("invalid bump level %q", level)
	}
	return next.String(), nil
}

func finalize(v *semver.Version) semver.Version {
	return *semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
}

// Reader binds a filesystem and manifest path
type Reader struct {
	fs   afero.Fs
	path string
}

// NewReader creates a Reader for path on fs
func NewReader(fs afero.Fs, path string) *Reader {
	return &Reader{fs: fs, path: path}
}

// Read loads the manifest
func (r *Reader) Read() (*Manifest, error) {
	return Read(r.fs, r.path)
}
