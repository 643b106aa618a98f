package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hochfrequenz/npm-release/internal/release"
	"github.com/hochfrequenz/npm-release/internal/shell"
)

func TestNewSlackMessage(t *testing.T) {
	msg := NewSlackMessage(Notification{
		Title:    "Published left-pad@1.2.4",
		Message:  "Released v1.2.4 from main",
		Level:    LevelSuccess,
		Package:  "left-pad@1.2.4",
		Branch:   "main",
		Tag:      "v1.2.4",
		Identity: "alice",
	})

	if msg.Text != "Published left-pad@1.2.4" {
		t.Errorf("Text = %q", msg.Text)
	}
	att := msg.Attachments[0]
	if att.Color != "good" || att.Footer != "npm-release" {
		t.Errorf("attachment = %+v", att)
	}

	got := map[string]string{}
	for _, f := range att.Fields {
		got[f.Title] = f.Value
	}
	want := map[string]string{"Package": "left-pad@1.2.4", "Branch": "main", "Tag": "v1.2.4", "Published by": "alice"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestNewSlackMessage_SkipsEmptyFields(t *testing.T) {
	msg := NewSlackMessage(Notification{Title: "Release of left-pad failed", Branch: "main"})
	if n := len(msg.Attachments[0].Fields); n != 1 {
		t.Errorf("got %d fields, want 1", n)
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Send(context.Background(), Notification{
		Title: "Published left-pad@1.2.4",
		Level: LevelSuccess,
		Tag:   "v1.2.4",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.Contains(body, `"value":"v1.2.4"`) {
		t.Errorf("payload missing tag field: %s", body)
	}
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := NewSlackNotifier(server.URL).Send(context.Background(), Notification{Title: "x"}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestSlackNotifier_Disabled(t *testing.T) {
	if err := NewSlackNotifier("").Send(context.Background(), Notification{Title: "x"}); err != nil {
		t.Errorf("disabled notifier returned %v", err)
	}
}

func TestSlackColor(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelSuccess, "good"},
		{LevelWarning, "warning"},
		{LevelError, "danger"},
		{LevelInfo, "#439FE0"},
	}

	for _, tt := range tests {
		if got := SlackColor(tt.level); got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestMultiNotifier_CollectsAllErrors(t *testing.T) {
	var called []string
	first := &mockNotifier{name: "first", calls: &called, err: errors.New("webhook down")}
	second := &mockNotifier{name: "second", calls: &called, err: errors.New("no display")}
	third := &mockNotifier{name: "third", calls: &called}

	err := NewMultiNotifier(first, second, third).Send(context.Background(), Notification{Title: "Test"})

	if len(called) != 3 {
		t.Errorf("Expected 3 calls, got %d", len(called))
	}
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"webhook down", "no display"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestMultiNotifier_NoErrors(t *testing.T) {
	var called []string
	err := NewMultiNotifier(&mockNotifier{name: "a", calls: &called}, NoopNotifier{}).Send(context.Background(), Notification{})
	if err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDesktopNotifier_Disabled(t *testing.T) {
	runner := &recordingRunner{}
	if err := NewDesktopNotifier(false, runner).Send(context.Background(), Notification{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 0 {
		t.Error("disabled notifier must not run anything")
	}
}

func TestDesktopNotifier_UnsupportedPlatform(t *testing.T) {
	runner := &recordingRunner{}
	d := NewDesktopNotifier(true, runner)
	d.goos = "plan9"
	if err := d.Send(context.Background(), Notification{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 0 {
		t.Error("unsupported platform must not run anything")
	}
}

func TestDesktopCommand_QuotesStayData(t *testing.T) {
	message := `publish failed: npm ERR! 403 "x" & (do shell script "touch /tmp/owned") & "`
	title := `Release of "left-pad" failed`
	n := Notification{Title: title, Message: message, Level: LevelError}

	for _, goos := range []string{"darwin", "linux"} {
		t.Run(goos, func(t *testing.T) {
			runner := &recordingRunner{}
			d := NewDesktopNotifier(true, runner)
			d.goos = goos
			if err := d.Send(context.Background(), n); err != nil {
				t.Fatal(err)
			}
			if len(runner.calls) != 1 {
				t.Fatalf("got %d calls", len(runner.calls))
			}

			args := runner.calls[0].Args
			if args[len(args)-2] != title || args[len(args)-1] != message {
				t.Errorf("title and message must be passed verbatim as the last arguments, got %q", args)
			}
			for _, a := range args[:len(args)-2] {
				if strings.Contains(a, "do shell script") || strings.Contains(a, "left-pad") {
					t.Errorf("notification text leaked into argument %q", a)
				}
			}
		})
	}
}

func TestFromOutcome(t *testing.T) {
	out := &release.Outcome{Package: "left-pad", Version: "1.2.4", Tag: "v1.2.4", Branch: "main", Identity: "alice"}

	n := FromOutcome(out, nil)
	if n.Level != LevelSuccess || n.Package != "left-pad@1.2.4" {
		t.Errorf("success notification = %+v", n)
	}
	if n.Branch != "main" || n.Tag != "v1.2.4" || n.Identity != "alice" {
		t.Errorf("release coordinates missing: %+v", n)
	}

	withWarning := *out
	withWarning.Warnings = []release.Warning{{Kind: release.KindPushFailed, Message: "push main and v1.2.4 manually"}}
	if n := FromOutcome(&withWarning, nil); n.Level != LevelWarning {
		t.Errorf("push warning level = %v, want warning", n.Level)
	}

	rbErr := &release.Error{Kind: release.KindRollbackIncomplete, Tag: "v1.2.4", Commit: "abc123", Err: errors.New("locked")}
	n = FromOutcome(out, rbErr)
	if n.Level != LevelError || n.Title != "Release rollback incomplete" {
		t.Errorf("rollback notification = %+v", n)
	}

	n = FromOutcome(out, &release.Error{Kind: release.KindPublishFailed, Err: errors.New("E500")})
	if n.Level != LevelError || n.Message != "publish failed: E500" {
		t.Errorf("failure notification = %+v", n)
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
	err   error
}

func (m *mockNotifier) Send(ctx context.Context, n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return m.err
}

type recordingRunner struct {
	calls []shell.Command
}

func (r *recordingRunner) Run(ctx context.Context, cmd shell.Command, opts shell.Options) (*shell.Result, error) {
	r.calls = append(r.calls, cmd)
	return &shell.Result{}, nil
}
