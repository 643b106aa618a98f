package registry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	jsoniter "github.com/json-iterator/go"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/shell"
)

// DefaultCommand is the npm executable name
const DefaultCommand = "npm"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// npm 9 renamed "access ls-collaborators" to "access list collaborators"
var listCollaboratorsConstraint = mustConstraint(">= 9.0.0-0")

// NPM drives the npm command line client
type NPM struct {
	command string
	dir     string
	runner  shell.Runner
	log     logr.Logger

	version *semver.Version
}

// NewNPM creates an NPM client running command inside dir
func NewNPM(command, dir string, runner shell.Runner, log logr.Logger) *NPM {
	if command == "" {
		command = DefaultCommand
	}
	return &NPM{command: command, dir: dir, runner: runner, log: log}
}

func (n *NPM) cmd(args ...string) shell.Command {
	return shell.Command{Name: n.command, Args: args, Dir: n.dir}
}

// ClientVersion returns the npm version, cached after the first call
func (n *NPM) ClientVersion(ctx context.Context) (*semver.Version, error) {
	if n.version != nil {
		return n.version, nil
	}
	res, err := n.runner.Run(ctx, n.cmd("--version"), shell.Options{Quiet: true})
	if err != nil {
		return nil, fmt.Errorf("npm --version: %w", err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("parsing npm version %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	n.version = v
	return v, nil
}

// WhoAmI returns the logged-in npm user. A failing whoami means nobody
// is logged in.
func (n *NPM) WhoAmI(ctx context.Context) (string, error) {
	res, err := n.runner.Run(ctx, n.cmd("whoami"), shell.Options{Quiet: true, AllowFailure: true})
	if err != nil {
		return "", fmt.Errorf("npm whoami: %w", err)
	}
	if res.ExitCode != 0 {
		n.log.V(1).Info("npm whoami failed, treating as anonymous", "output", res.Output())
		return "", nil
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Owners lists the package owners
func (n *NPM) Owners(ctx context.Context, pkg string) ([]domain.Maintainer, error) {
	res, err := n.runner.Run(ctx, n.cmd("owner", "ls", pkg), shell.Options{Quiet: true})
	if err != nil {
		return nil, wrapLookup("npm owner ls", err)
	}
	return ParseOwners(res.Stdout), nil
}

// Collaborators lists users with access to the package
func (n *NPM) Collaborators(ctx context.Context, pkg string) ([]domain.Collaborator, error) {
	args := []string{"access", "ls-collaborators", pkg, "--json"}
	if v, err := n.ClientVersion(ctx); err == nil && listCollaboratorsConstraint.Check(v) {
		args = []string{"access", "list", "collaborators", pkg, "--json"}
	}

	res, err := n.runner.Run(ctx, n.cmd(args...), shell.Options{Quiet: true})
	if err != nil {
		return nil, wrapLookup("npm access", err)
	}
	return ParseCollaborators(res.Stdout)
}

// Bump runs "npm version <level>", which commits and tags the new version
func (n *NPM) Bump(ctx context.Context, level domain.BumpLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid bump level %q", level)
	}
	if _, err := n.runner.Run(ctx, n.cmd("version", string(level)), shell.Options{}); err != nil {
		return fmt.Errorf("npm version %s: %w", level, err)
	}
	return nil
}

// Publish runs "npm publish"
func (n *NPM) Publish(ctx context.Context, opts PublishOptions) error {
	args := []string{"publish"}
	if opts.OTP != "" {
		args = append(args, "--otp="+opts.OTP)
	}
	if _, err := n.runner.Run(ctx, n.cmd(args...), shell.Options{}); err != nil {
		return fmt.Errorf("npm publish: %w", err)
	}
	return nil
}

func wrapLookup(what string, err error) error {
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) && (strings.Contains(exitErr.Output, "E404") || strings.Contains(exitErr.Output, "404 Not Found")) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ParseOwners parses "npm owner ls" output, one "login <email>" per line
func ParseOwners(out string) []domain.Maintainer {
	var owners []domain.Maintainer
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		login, email := line, ""
		if i := strings.Index(line, " <"); i >= 0 {
			login = line[:i]
			email = strings.TrimSuffix(line[i+2:], ">")
		}
		owners = append(owners, domain.Maintainer{Login: login, Email: email})
	}
	return owners
}

// ParseCollaborators parses the JSON object npm prints for access listings,
// mapping logins to "read-only" or "read-write"
func ParseCollaborators(out string) ([]domain.Collaborator, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var access map[string]string
	if err := json.Unmarshal([]byte(out), &access); err != nil {
		return nil, fmt.Errorf("parsing collaborators: %w", err)
	}

	collaborators := make([]domain.Collaborator, 0, len(access))
	for login, level := range access {
		collaborators = append(collaborators, domain.Collaborator{Login: login, Access: level})
	}
	sort.Slice(collaborators, func(i, j int) bool {
		return collaborators[i].Login < collaborators[j].Login
	})
	return collaborators, nil
}
