//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fakeNPM stands in for the npm client. FAKE_NEXT_VERSION is the version
// written by "version", FAKE_PUBLISH_FAIL makes "publish" fail and
// FAKE_WHOAMI is the logged-in user ("" = anonymous).
const fakeNPM = `#!/bin/sh
case "$1" in
--version)
	echo "10.2.0"
	;;
whoami)
	[ -n "$FAKE_WHOAMI" ] || { echo "npm ERR! code ENEEDAUTH" >&2; exit 1; }
	echo "$FAKE_WHOAMI"
	;;
owner)
	echo "alice <alice@example.com>"
	;;
access)
	echo "{}"
	;;
version)
	sed -i.bak "s/\"version\": \"[^\"]*\"/\"version\": \"$FAKE_NEXT_VERSION\"/" package.json && rm -f package.json.bak
	git commit -q -am "$FAKE_NEXT_VERSION" && git tag "v$FAKE_NEXT_VERSION"
	echo "v$FAKE_NEXT_VERSION"
	;;
publish)
	[ -z "$FAKE_PUBLISH_FAIL" ] || { echo "npm ERR! code E403" >&2; exit 1; }
	echo "+ left-pad@$FAKE_NEXT_VERSION"
	;;
*)
	echo "unexpected npm call: $*" >&2
	exit 1
	;;
esac
`

// Project is a package repository with a bare remote and a fake npm client
type Project struct {
	Dir    string
	Remote string
	Config string
}

// NewProject creates a repository on main at version 1.2.3
func NewProject(t *testing.T) *Project {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	p := &Project{
		Dir:    filepath.Join(root, "pkg"),
		Remote: filepath.Join(root, "remote.git"),
		Config: filepath.Join(root, "npm-release.toml"),
	}

	npm := filepath.Join(root, "npm")
	writeFile(t, npm, fakeNPM, 0755)

	git(t, root, "init", "-q", "--bare", p.Remote)
	git(t, root, "init", "-q", "-b", "main", p.Dir)
	git(t, p.Dir, "config", "user.email", "test@example.com")
	git(t, p.Dir, "config", "user.name", "Test")
	writeFile(t, filepath.Join(p.Dir, "package.json"), `{
  "name": "left-pad",
  "version": "1.2.3"
}
`, 0644)
	git(t, p.Dir, "add", "package.json")
	git(t, p.Dir, "commit", "-q", "-m", "initial")
	git(t, p.Dir, "remote", "add", "origin", p.Remote)
	git(t, p.Dir, "push", "-q", "origin", "main")

	writeFile(t, p.Config, "[registry]\ncommand = \""+npm+"\"\n", 0644)
	return p
}

// Head returns the current commit of the project
func (p *Project) Head(t *testing.T) string {
	t.Helper()
	return git(t, p.Dir, "rev-parse", "HEAD")
}

// Tags lists the local tags of the project
func (p *Project) Tags(t *testing.T) string {
	t.Helper()
	return git(t, p.Dir, "tag", "--list")
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}
