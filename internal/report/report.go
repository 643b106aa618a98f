// Package report renders release outcomes for the operator
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gosuri/uitable"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/release"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	successStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196"))

	bannerStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))
)

// Printer writes human readable reports
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print reports the outcome of a run and the error that ended it, if any
func (p *Printer) Print(out *release.Outcome, err error) {
	if err != nil {
		p.printError(out, err)
		return
	}

	if out.DryRun {
		p.printDryRun(out)
		return
	}

	p.line(successStyle.Render(fmt.Sprintf("Published %s@%s as %s", out.Package, out.Version, describe(out.Identity))))
	p.printWarnings(out)
}

func (p *Printer) printDryRun(out *release.Outcome) {
	p.line(successStyle.Render(fmt.Sprintf("Dry run for %s %s -> %s on %s", out.Package, out.PreviousVersion, out.Version, out.Branch)))

	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("STEP", "STATUS", "DETAIL")
	for _, s := range out.Steps {
		detail := s.Detail
		if s.Error != "" {
			detail = s.Error
		}
		table.AddRow(s.Step, s.Status, detail)
	}
	p.line(table.String())

	for _, w := range out.Warnings {
		p.line(warningStyle.Render("warning: " + w.Message))
	}
}

func (p *Printer) printWarnings(out *release.Outcome) {
	for _, w := range out.Warnings {
		p.line(warningStyle.Render("warning: " + w.Message))
		if w.Kind != release.KindPushFailed {
			continue
		}
		p.line(hintStyle.Render("run:"))
		for _, s := range out.Steps {
			if s.Status != domain.StepFailed {
				continue
			}
			switch s.Step {
			case domain.StepPushBranch:
				p.line(hintStyle.Render(fmt.Sprintf("  git push %s %s", w.Remote, w.Branch)))
			case domain.StepPushTag:
				p.line(hintStyle.Render(fmt.Sprintf("  git push %s refs/tags/%s", w.Remote, w.Tag)))
			}
		}
	}
}

func (p *Printer) printError(out *release.Outcome, err error) {
	var relErr *release.Error
	if !errors.As(err, &relErr) {
		p.line(errorStyle.Render("error: " + err.Error()))
		return
	}

	switch relErr.Kind {
	case release.KindRollbackIncomplete:
		var b strings.Builder
		b.WriteString("ROLLBACK INCOMPLETE\n")
		fmt.Fprintf(&b, "The repository may still hold tag %s and the version bump commit.\n", relErr.Tag)
		fmt.Fprintf(&b, "Restore it by hand: git tag -d %s && git reset --hard %s\n", relErr.Tag, relErr.Commit)
		fmt.Fprintf(&b, "rollback error: %v", relErr.Err)
		if relErr.Cause != nil {
			fmt.Fprintf(&b, "\ntriggered by: %v", relErr.Cause)
		}
		p.line(bannerStyle.Render(errorStyle.Render(b.String())))
	case release.KindNotLoggedIn:
		p.line(errorStyle.Render("error: " + relErr.Error()))
		p.line(hintStyle.Render("log in with `npm login` and run the release again"))
	case release.KindNoPublishAccess:
		p.line(errorStyle.Render("error: " + relErr.Error()))
		p.printOwners(relErr.Owners)
	case release.KindPublishFailed:
		p.line(errorStyle.Render("error: publish failed"))
		if relErr.Err != nil {
			p.line(relErr.Err.Error())
		}
		if relErr.Unpublished {
			p.line(hintStyle.Render(fmt.Sprintf("%s has never been published; check the package name and scope, and that %s may create it", relErr.Package, describe(relErr.Identity))))
		}
	default:
		p.line(errorStyle.Render("error: " + relErr.Error()))
	}

	if relErr.Authorization() || relErr.Kind == release.KindPublishFailed {
		if out != nil && out.Visited(domain.StateRolledBack) {
			p.line(hintStyle.Render(fmt.Sprintf("the version bump was rolled back to %s", out.BaseCommit)))
		}
	}
}

func (p *Printer) printOwners(owners []domain.Maintainer) {
	if len(owners) == 0 {
		return
	}
	p.line("ask one of the package owners for access:")
	table := uitable.New()
	table.AddRow("OWNER", "EMAIL")
	for _, o := range owners {
		table.AddRow(o.Login, o.Email)
	}
	p.line(table.String())
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func describe(identity string) string {
	if identity == "" {
		return "current npm user"
	}
	return identity
}

// Document is the machine readable form of a run
type Document struct {
	Outcome  *release.Outcome `json:"outcome" yaml:"outcome"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
	Kind     release.Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	ExitCode int              `json:"exit_code" yaml:"exit_code"`
}

// NewDocument pairs an outcome with the error that ended the run
func NewDocument(out *release.Outcome, err error) Document {
	doc := Document{Outcome: out}
	if err == nil {
		return doc
	}
	doc.Error = err.Error()
	doc.ExitCode = release.ExitFailure
	var relErr *release.Error
	if errors.As(err, &relErr) {
		doc.Kind = relErr.Kind
		doc.ExitCode = relErr.ExitCode()
	}
	return doc
}

// WriteJSON writes the document as indented JSON
func WriteJSON(w io.Writer, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteYAML writes the document as YAML
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders out in the given format
func Write(w io.Writer, format string, out *release.Outcome, err error) error {
	switch format {
	case "", FormatText:
		NewPrinter(w).Print(out, err)
		return nil
	case FormatJSON:
		return WriteJSON(w, NewDocument(out, err))
	case FormatYAML:
		return WriteYAML(w, NewDocument(out, err))
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// ValidFormat reports whether format is supported
func ValidFormat(format string) bool {
	switch format {
	case "", FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}
