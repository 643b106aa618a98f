package notify

import (
	"errors"
	"fmt"

	"github.com/hochfrequenz/npm-release/internal/release"
)

// FromOutcome builds the notification for a finished release
func FromOutcome(out *release.Outcome, err error) Notification {
	n := Notification{
		Branch:   out.Branch,
		Tag:      out.Tag,
		Identity: out.Identity,
	}
	if out.Package != "" && out.Version != "" {
		n.Package = out.Package + "@" + out.Version
	}

	var relErr *release.Error
	switch {
	case err == nil && len(out.Warnings) > 0:
		n.Level = LevelWarning
		n.Title = fmt.Sprintf("Published %s, push incomplete", n.Package)
		n.Message = out.Warnings[0].Message
	case err == nil:
		n.Level = LevelSuccess
		n.Title = fmt.Sprintf("Published %s", n.Package)
		n.Message = fmt.Sprintf("Released %s from %s", out.Tag, out.Branch)
	case errors.As(err, &relErr) && relErr.Kind == release.KindRollbackIncomplete:
		n.Level = LevelError
		n.Title = "Release rollback incomplete"
		n.Message = fmt.Sprintf("Inspect tag %s and commit %s: %v", relErr.Tag, relErr.Commit, err)
	default:
		n.Level = LevelError
		n.Title = fmt.Sprintf("Release of %s failed", out.Package)
		n.Message = err.Error()
	}
	return n
}
