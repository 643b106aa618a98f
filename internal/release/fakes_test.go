package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/manifest"
	"github.com/hochfrequenz/npm-release/internal/registry"
	"github.com/hochfrequenz/npm-release/internal/vcs"
)

// world is the state shared by the fake collaborators: a repository
// history, its tags and the manifest the registry client rewrites
type world struct {
	name     string
	version  string
	private  bool
	branch   string
	branches map[string]bool
	commits  []string
	tags     map[string]string

	// calls lists every collaborator call in order
	calls []string
	// errs injects failures by call name
	errs map[string]error
}

func newWorld() *world {
	return &world{
		name:     "left-pad",
		version:  "1.2.3",
		branch:   "main",
		branches: map[string]bool{"main": true},
		commits:  []string{"c0", "c1"},
		tags:     map[string]string{"v1.2.3": "c1"},
		errs:     map[string]error{},
	}
}

var mutating = map[string]bool{
	"bump": true, "publish": true, "push-branch": true, "push-tag": true,
	"delete-tag": true, "reset": true,
}

func (w *world) call(name string) error {
	w.calls = append(w.calls, name)
	return w.errs[name]
}

func (w *world) mutations() []string {
	var m []string
	for _, c := range w.calls {
		if mutating[c] {
			m = append(m, c)
		}
	}
	return m
}

func (w *world) called(name string) bool {
	for _, c := range w.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (w *world) head() string {
	return w.commits[len(w.commits)-1]
}

// snapshot captures commits and tags for before/after comparisons
func (w *world) snapshot() string {
	return fmt.Sprintf("%v %v %s", w.commits, w.tags, w.version)
}

type fakeRepo struct {
	w *world
}

func (r *fakeRepo) CurrentBranch(ctx context.Context) (string, error) {
	if err := r.w.call("current-branch"); err != nil {
		return "", err
	}
	return r.w.branch, nil
}

func (r *fakeRepo) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := r.w.call("branch-exists"); err != nil {
		return false, err
	}
	return r.w.branches[name], nil
}

func (r *fakeRepo) Head(ctx context.Context) (string, error) {
	if err := r.w.call("head"); err != nil {
		return "", err
	}
	return r.w.head(), nil
}

func (r *fakeRepo) TagExists(ctx context.Context, tag string) (bool, error) {
	if err := r.w.call("tag-exists"); err != nil {
		return false, err
	}
	_, ok := r.w.tags[tag]
	return ok, nil
}

func (r *fakeRepo) DeleteTag(ctx context.Context, tag string) error {
	if err := r.w.call("delete-tag"); err != nil {
		return err
	}
	if _, ok := r.w.tags[tag]; !ok {
		return vcs.ErrTagNotFound
	}
	delete(r.w.tags, tag)
	return nil
}

func (r *fakeRepo) ResetHard(ctx context.Context, commit string) error {
	if err := r.w.call("reset"); err != nil {
		return err
	}
	for i, c := range r.w.commits {
		if c == commit {
			r.w.commits = r.w.commits[:i+1]
			// the bump commit carried the manifest change
			r.w.version = r.w.versionAt(commit)
			return nil
		}
	}
	return errors.New("unknown commit " + commit)
}

func (r *fakeRepo) PushBranch(ctx context.Context, remote, branch string) error {
	return r.w.call("push-branch")
}

func (r *fakeRepo) PushTag(ctx context.Context, remote, tag string) error {
	return r.w.call("push-tag")
}

// versionAt returns the manifest version as of commit
func (w *world) versionAt(commit string) string {
	for tag, c := range w.tags {
		if c == commit {
			return tag[1:]
		}
	}
	return w.version
}

type fakeRegistry struct {
	w             *world
	identity      string
	owners        []domain.Maintainer
	collaborators []domain.Collaborator
	clientVersion string
	publishedOTP  string
}

func newFakeRegistry(w *world) *fakeRegistry {
	return &fakeRegistry{
		w:             w,
		identity:      "alice",
		owners:        []domain.Maintainer{{Login: "alice", Email: "alice@example.com"}, {Login: "carol", Email: "carol@example.com"}},
		collaborators: []domain.Collaborator{{Login: "alice", Access: "read-write"}, {Login: "carol", Access: "read-write"}},
		clientVersion: "10.2.4",
	}
}

func (r *fakeRegistry) WhoAmI(ctx context.Context) (string, error) {
	if err := r.w.call("whoami"); err != nil {
		return "", err
	}
	return r.identity, nil
}

func (r *fakeRegistry) Owners(ctx context.Context, pkg string) ([]domain.Maintainer, error) {
	if err := r.w.call("owners"); err != nil {
		return nil, err
	}
	return r.owners, nil
}

func (r *fakeRegistry) Collaborators(ctx context.Context, pkg string) ([]domain.Collaborator, error) {
	if err := r.w.call("collaborators"); err != nil {
		return nil, err
	}
	return r.collaborators, nil
}

// Bump behaves like "npm version": rewrite the manifest, commit, tag
func (r *fakeRegistry) Bump(ctx context.Context, level domain.BumpLevel) error {
	if err := r.w.call("bump"); err != nil {
		return err
	}
	next, err := (&manifest.Manifest{Version: r.w.version}).NextVersion(level)
	if err != nil {
		return err
	}
	commit := fmt.Sprintf("c%d", len(r.w.commits))
	r.w.commits = append(r.w.commits, commit)
	r.w.tags["v"+next] = commit
	r.w.version = next
	return nil
}

func (r *fakeRegistry) Publish(ctx context.Context, opts registry.PublishOptions) error {
	if err := r.w.call("publish"); err != nil {
		return err
	}
	r.publishedOTP = opts.OTP
	return nil
}

func (r *fakeRegistry) ClientVersion(ctx context.Context) (*semver.Version, error) {
	if err := r.w.call("client-version"); err != nil {
		return nil, err
	}
	return semver.NewVersion(r.clientVersion)
}

type fakeManifest struct {
	w *world
	// failAfterBump makes every read after a bump fail
	failAfterBump error
}

func (m *fakeManifest) Read() (*manifest.Manifest, error) {
	if err := m.w.call("read-manifest"); err != nil {
		return nil, err
	}
	if m.failAfterBump != nil && m.w.called("bump") {
		return nil, m.failAfterBump
	}
	return &manifest.Manifest{Name: m.w.name, Version: m.w.version, Private: m.w.private}, nil
}
