package domain

// AuthorizationStatus describes what the current registry identity may do
// with the package being released
type AuthorizationStatus string

const (
	AuthUnknown      AuthorizationStatus = ""
	AuthAnonymous    AuthorizationStatus = "anonymous"
	AuthNoAccess     AuthorizationStatus = "authenticated-no-access"
	AuthCollaborator AuthorizationStatus = "collaborator"
	AuthOwner        AuthorizationStatus = "owner"
)

// CanPublish reports whether the status grants publish rights
func (s AuthorizationStatus) CanPublish() bool {
	return s == AuthCollaborator || s == AuthOwner
}

// State is a node of the per-run release state machine
type State string

const (
	StateInit               State = "init"
	StateBranchResolved     State = "branch_resolved"
	StateBranchValidated    State = "branch_validated"
	StateBumped             State = "bumped"
	StatePublished          State = "published"
	StatePushAttempted      State = "push_attempted"
	StateRollbackInProgress State = "rollback_in_progress"
	StateRolledBack         State = "rolled_back"
	StateDiagnosedFailure   State = "diagnosed_failure"
	StateRollbackIncomplete State = "rollback_incomplete"
	StateDone               State = "done"
)

// Step names a side-effecting operation of a release
type Step string

const (
	StepBump        Step = "bump"
	StepCapability  Step = "capability"
	StepPublish     Step = "publish"
	StepPushBranch  Step = "push-branch"
	StepPushTag     Step = "push-tag"
	StepDeleteTag   Step = "delete-tag"
	StepResetCommit Step = "reset-commit"
)

// StepStatus is the result of attempting a step
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)
