package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/npm-release/internal/domain"
	"github.com/hochfrequenz/npm-release/internal/release"
)

func published() *release.Outcome {
	return &release.Outcome{
		Level:           domain.BumpPatch,
		Package:         "left-pad",
		Branch:          "main",
		PreviousVersion: "1.2.3",
		Version:         "1.2.4",
		Tag:             "v1.2.4",
		BaseCommit:      "abc123",
		Identity:        "alice",
		States:          []domain.State{domain.StateInit, domain.StateDone},
	}
}

func render(out *release.Outcome, err error) string {
	var buf bytes.Buffer
	NewPrinter(&buf).Print(out, err)
	return buf.String()
}

func TestPrint_Success(t *testing.T) {
	got := render(published(), nil)
	assert.Contains(t, got, "Published left-pad@1.2.4 as alice")
	assert.NotContains(t, got, "warning")
}

func TestPrint_PushWarning(t *testing.T) {
	out := published()
	out.Steps = []release.StepRecord{
		{Step: domain.StepPushBranch, Status: domain.StepOK, Detail: "main"},
		{Step: domain.StepPushTag, Status: domain.StepFailed, Detail: "v1.2.4", Error: "rejected"},
	}
	out.Warnings = []release.Warning{{
		Kind:    release.KindPushFailed,
		Message: "pushing failed",
		Branch:  "main",
		Tag:     "v1.2.4",
		Remote:  "origin",
	}}

	got := render(out, nil)
	assert.Contains(t, got, "Published left-pad@1.2.4")
	assert.Contains(t, got, "warning: pushing failed")
	assert.Contains(t, got, "git push origin refs/tags/v1.2.4")
	assert.NotContains(t, got, "git push origin main")
}

func TestPrint_RollbackIncomplete(t *testing.T) {
	err := &release.Error{
		Kind:   release.KindRollbackIncomplete,
		Err:    errors.New("index.lock exists"),
		Tag:    "v1.2.4",
		Commit: "abc123",
		Cause:  errors.New("E403"),
	}

	got := render(published(), err)
	assert.Contains(t, got, "ROLLBACK INCOMPLETE")
	assert.Contains(t, got, "git tag -d v1.2.4 && git reset --hard abc123")
	assert.Contains(t, got, "index.lock exists")
	assert.Contains(t, got, "E403")
}

func TestPrint_NotLoggedIn(t *testing.T) {
	out := published()
	out.States = append(out.States, domain.StateRolledBack)

	got := render(out, &release.Error{Kind: release.KindNotLoggedIn})
	assert.Contains(t, got, "not logged in")
	assert.Contains(t, got, "npm login")
	assert.Contains(t, got, "rolled back to abc123")
}

func TestPrint_NoPublishAccess(t *testing.T) {
	err := &release.Error{
		Kind:     release.KindNoPublishAccess,
		Identity: "mallory",
		Package:  "left-pad",
		Owners: []domain.Maintainer{
			{Login: "alice", Email: "alice@example.com"},
			{Login: "bob", Email: "bob@example.com"},
		},
	}

	got := render(published(), err)
	assert.Contains(t, got, "mallory does not have publish access to left-pad")
	assert.Contains(t, got, "alice@example.com")
	assert.Contains(t, got, "bob@example.com")
}

func TestPrint_PublishFailedVerbatim(t *testing.T) {
	registryOutput := "npm ERR! code E500\nnpm ERR! 500 Internal Server Error"
	got := render(published(), &release.Error{Kind: release.KindPublishFailed, Err: errors.New(registryOutput)})
	assert.Contains(t, got, registryOutput)
}

func TestPrint_FirstPublishHint(t *testing.T) {
	err := &release.Error{
		Kind:        release.KindPublishFailed,
		Err:         errors.New("npm ERR! 402 Payment Required"),
		Identity:    "alice",
		Package:     "@acme/left-pad",
		Unpublished: true,
	}

	got := render(published(), err)
	assert.Contains(t, got, "402 Payment Required")
	assert.Contains(t, got, "@acme/left-pad has never been published")
}

func TestPrint_DryRun(t *testing.T) {
	out := published()
	out.DryRun = true
	out.Steps = []release.StepRecord{
		{Step: domain.StepBump, Status: domain.StepSkipped, Detail: "would bump 1.2.3 -> 1.2.4 and tag v1.2.4"},
		{Step: domain.StepPublish, Status: domain.StepSkipped, Detail: "would publish left-pad@1.2.4"},
	}
	out.Warnings = []release.Warning{{Kind: release.KindNoPublishAccess, Message: "alice cannot publish left-pad"}}

	got := render(out, nil)
	assert.Contains(t, got, "Dry run for left-pad 1.2.3 -> 1.2.4 on main")
	assert.Contains(t, got, "would publish left-pad@1.2.4")
	assert.Contains(t, got, "skipped")
	assert.Contains(t, got, "warning: alice cannot publish left-pad")
	assert.NotContains(t, got, "Published")
}

func TestPrint_PlainError(t *testing.T) {
	got := render(&release.Outcome{}, errors.New("boom"))
	assert.Contains(t, got, "error: boom")
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(published(), nil)
	assert.Equal(t, 0, doc.ExitCode)
	assert.Empty(t, doc.Error)

	doc = NewDocument(published(), &release.Error{Kind: release.KindPublishFailed, Err: errors.New("E500")})
	assert.Equal(t, release.ExitPublishFailed, doc.ExitCode)
	assert.Equal(t, release.KindPublishFailed, doc.Kind)

	doc = NewDocument(published(), errors.New("boom"))
	assert.Equal(t, release.ExitFailure, doc.ExitCode)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, published(), nil))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	outcome, ok := decoded["outcome"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1.2.4", outcome["version"])
	assert.Equal(t, "v1.2.4", outcome["tag"])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	err := &release.Error{Kind: release.KindWrongBranch, Expected: "main", Actual: "feature"}
	require.NoError(t, Write(&buf, FormatYAML, published(), err))

	var decoded struct {
		Kind     string `yaml:"kind"`
		ExitCode int    `yaml:"exit_code"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "wrong_branch", decoded.Kind)
	assert.Equal(t, 1, decoded.ExitCode)
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "xml", published(), nil))
	assert.False(t, ValidFormat("xml"))
	assert.True(t, ValidFormat(FormatYAML))
}
