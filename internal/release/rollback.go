package release

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hochfrequenz/npm-release/internal/domain"
)

// rollback deletes the tag created by the bump and resets the branch to the
// commit recorded before it. Both undo steps are attempted even if the
// first fails; any failure yields a KindRollbackIncomplete error.
func (o *Orchestrator) rollback(ctx context.Context, out *Outcome) *Error {
	out.enter(domain.StateRollbackInProgress)
	o.log.Info("rolling back version bump", "commit", out.BaseCommit)

	var errs error

	tag := out.Tag
	if m, err := o.manifest.Read(); err == nil {
		tag = m.TagName(o.opts.TagPrefix)
	} else if tag == "" {
		errs = multierr.Append(errs, fmt.Errorf("determining tag to delete: %w", err))
	}

	if tag != "" {
		if err := o.repo.DeleteTag(ctx, tag); err != nil {
			out.record(domain.StepDeleteTag, domain.StepFailed, tag, err)
			errs = multierr.Append(errs, err)
		} else {
			out.record(domain.StepDeleteTag, domain.StepOK, tag, nil)
		}
	}

	if err := o.repo.ResetHard(ctx, out.BaseCommit); err != nil {
		out.record(domain.StepResetCommit, domain.StepFailed, out.BaseCommit, err)
		errs = multierr.Append(errs, err)
	} else {
		out.record(domain.StepResetCommit, domain.StepOK, out.BaseCommit, nil)
	}

	if errs != nil {
		o.log.Error(errs, "rollback incomplete", "tag", tag, "commit", out.BaseCommit)
		out.enter(domain.StateRollbackIncomplete)
		out.enter(domain.StateDone)
		return &Error{Kind: KindRollbackIncomplete, Err: errs, Tag: tag, Commit: out.BaseCommit}
	}

	out.enter(domain.StateRolledBack)
	return nil
}
