package release

import (
	"github.com/hochfrequenz/npm-release/internal/domain"
)

// Outcome records what a release did. It is returned for successful and
// failed runs alike.
type Outcome struct {
	Level           domain.BumpLevel           `json:"level" yaml:"level"`
	Package         string                     `json:"package,omitempty" yaml:"package,omitempty"`
	Branch          string                     `json:"branch,omitempty" yaml:"branch,omitempty"`
	PreviousVersion string                     `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	Version         string                     `json:"version,omitempty" yaml:"version,omitempty"`
	Tag             string                     `json:"tag,omitempty" yaml:"tag,omitempty"`
	BaseCommit      string                     `json:"base_commit,omitempty" yaml:"base_commit,omitempty"`
	Identity        string                     `json:"identity,omitempty" yaml:"identity,omitempty"`
	Auth            domain.AuthorizationStatus `json:"auth,omitempty" yaml:"auth,omitempty"`
	Owners          []domain.Maintainer        `json:"owners,omitempty" yaml:"owners,omitempty"`
	DryRun          bool                       `json:"dry_run" yaml:"dry_run"`
	States          []domain.State             `json:"states" yaml:"states"`
	Steps           []StepRecord               `json:"steps,omitempty" yaml:"steps,omitempty"`
	Warnings        []Warning                  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// StepRecord is one attempted or skipped side effect
type StepRecord struct {
	Step   domain.Step       `json:"step" yaml:"step"`
	Status domain.StepStatus `json:"status" yaml:"status"`
	Detail string            `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error  string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Warning is a problem that did not fail the release
type Warning struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Branch  string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Tag     string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Remote  string `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// State returns the last state the run reached
func (o *Outcome) State() domain.State {
	if len(o.States) == 0 {
		return domain.StateInit
	}
	return o.States[len(o.States)-1]
}

// Visited reports whether the run passed through s
func (o *Outcome) Visited(s domain.State) bool {
	for _, v := range o.States {
		if v == s {
			return true
		}
	}
	return false
}

// StepStatus returns the status recorded for step, or "" if never reached
func (o *Outcome) StepStatus(step domain.Step) domain.StepStatus {
	for _, s := range o.Steps {
		if s.Step == step {
			return s.Status
		}
	}
	return ""
}

func (o *Outcome) enter(s domain.State) {
	o.States = append(o.States, s)
}

func (o *Outcome) record(step domain.Step, status domain.StepStatus, detail string, err error) {
	rec := StepRecord{Step: step, Status: status, Detail: detail}
	if err != nil {
		rec.Error = err.Error()
	}
	o.Steps = append(o.Steps, rec)
}
