package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hochfrequenz/npm-release/internal/config"
	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/manifest"
	"github.com/hochfrequenz/npm-release/internal/notify"
	"github.com/hochfrequenz/npm-release/internal/registry"
	"github.com/hochfrequenz/npm-release/internal/release"
	"github.com/hochfrequenz/npm-release/internal/report"
	"github.com/hochfrequenz/npm-release/internal/shell"
	"github.com/hochfrequenz/npm-release/internal/vcs"
)

// otpEnv is read when --otp is not given
const otpEnv = "NPM_CONFIG_OTP"

// wiring builds the release collaborators and notifier for a project
type wiring func(env wiringEnv) (release.Deps, notify.Notifier, error)

type wiringEnv struct {
	Dir    string
	Config *config.Config
	Log    logr.Logger
	// Stdout and Stderr receive the output of non-quiet external commands
	Stdout io.Writer
	Stderr io.Writer
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	wire   wiring
	exit   int

	configPath    string
	dir           string
	releaseBranch string
	otp           string
	dryRun        bool
	verbose       bool
	output        string
}

func newCLI(stdout, stderr io.Writer, wire wiring) *cli {
	return &cli{stdout: stdout, stderr: stderr, wire: wire}
}

func (c *cli) rootCmd() *cobra.Command {
	levels := make([]string, 0, 3)
	for _, l := range domain.BumpLevels() {
		levels = append(levels, l.String())
	}

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("npm-release <%s>", strings.Join(levels, "|")),
		Short: "Bump, publish and push an npm package",
		Long: `npm-release bumps the package version, publishes it to the registry and
pushes the release commit and tag. If publishing fails the version bump is
rolled back and the reason (not logged in, missing access) is diagnosed.`,
		Example: `  npm-release patch
  npm-release minor --otp 123456
  npm-release major --dryrun --output json`,
		Args:          validateLevel,
		ValidArgs:     levels,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runRelease,
	}

	flags := cmd.Flags()
	flags.StringVar(&c.releaseBranch, "release-branch", "", "branch releases must be made from (default: first existing of the configured candidates)")
	flags.StringVar(&c.otp, "otp", "", "one-time password for publishing (default $"+otpEnv+")")
	flags.BoolVar(&c.dryRun, "dryrun", false, "run the checks without bumping, publishing or pushing")
	flags.StringVar(&c.dir, "dir", ".", "project directory")
	flags.StringVar(&c.configPath, "config", "", "config file path (default: nearest "+config.LocalConfigName+")")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log every external command")
	flags.StringVarP(&c.output, "output", "o", report.FormatText, "report format: text, json or yaml")

	return cmd
}

func validateLevel(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one bump level, got %d arguments", len(args))
	}
	_, err := domain.ParseBumpLevel(args[0])
	return err
}

func (c *cli) printUsageError(cmd *cobra.Command, err error) {
	fmt.Fprintf(c.stderr, "Error: %v\n\n", err)
	fmt.Fprint(c.stderr, cmd.UsageString())
}

func (c *cli) runRelease(cmd *cobra.Command, args []string) error {
	level, err := domain.ParseBumpLevel(args[0])
	if err != nil {
		return err
	}
	if !report.ValidFormat(c.output) {
		return fmt.Errorf("unknown output format %q", c.output)
	}

	zl := newZapLogger(c.stderr, c.verbose)
	defer zl.Sync() //nolint:errcheck
	log := zapr.NewLogger(zl).WithValues("run", uuid.NewString()[:8])

	cfg, err := config.LoadForProject(c.configPath, c.dir)
	if err != nil {
		return withExit(release.ExitFailure, c.reportError(fmt.Errorf("loading config: %w", err)))
	}

	// Keep machine-readable output clean of npm and git chatter
	cmdOut := c.stdout
	if c.output != report.FormatText {
		cmdOut = c.stderr
	}
	deps, notifier, err := c.wire(wiringEnv{Dir: c.dir, Config: cfg, Log: log, Stdout: cmdOut, Stderr: c.stderr})
	if err != nil {
		return withExit(release.ExitFailure, c.reportError(err))
	}

	orch := release.New(deps, c.options(cfg))
	out, relErr := orch.Release(cmd.Context(), level)

	w := c.stdout
	if relErr != nil && c.output == report.FormatText {
		w = c.stderr
	}
	if err := report.Write(w, c.output, out, relErr); err != nil {
		log.Error(err, "writing report")
	}

	if !out.DryRun {
		if err := notifier.Send(cmd.Context(), notify.FromOutcome(out, relErr)); err != nil {
			log.Error(err, "sending notification")
		}
	}

	c.exit = release.ExitOK
	var e *release.Error
	if errors.As(relErr, &e) {
		c.exit = e.ExitCode()
	} else if relErr != nil {
		c.exit = release.ExitFailure
	}
	return nil
}

func (c *cli) options(cfg *config.Config) release.Options {
	opts := release.Options{
		Branch:     cfg.Release.Branch,
		Candidates: cfg.Release.Candidates,
		Remote:     cfg.Release.Remote,
		TagPrefix:  cfg.Release.TagPrefix,
		OTP:        c.otp,
		DryRun:     c.dryRun,
	}
	if c.releaseBranch != "" {
		opts.Branch = c.releaseBranch
	}
	if opts.OTP == "" {
		opts.OTP = os.Getenv(otpEnv)
	}
	return opts
}

// reportError prints a failure that happened before the release started
func (c *cli) reportError(err error) error {
	fmt.Fprintf(c.stderr, "error: %v\n", err)
	return err
}

func newZapLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// defaultWiring connects the release to git, npm and the local filesystem
func defaultWiring(env wiringEnv) (release.Deps, notify.Notifier, error) {
	dir, err := filepath.Abs(env.Dir)
	if err != nil {
		return release.Deps{}, nil, err
	}

	runner := shell.NewExecRunner(env.Stdout, env.Stderr, env.Log)
	manifestPath := env.Config.Registry.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(dir, manifestPath)
	}

	deps := release.Deps{
		Repo:     vcs.NewGitRepository(dir, runner, env.Log),
		Registry: registry.NewNPM(env.Config.Registry.Command, dir, runner, env.Log),
		Manifest: manifest.NewReader(afero.NewOsFs(), manifestPath),
		Log:      env.Log,
	}

	return deps, newNotifier(env.Config.Notifications, runner), nil
}

func newNotifier(cfg config.NotificationsConfig, runner shell.Runner) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackWebhook))
	}
	if cfg.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true, runner))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) (int, bool) {
	var e *exitError
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}
