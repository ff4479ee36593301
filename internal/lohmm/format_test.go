package lohmm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

func TestEvent(t *testing.T) {
	tests := []struct {
		name string
		cmd  domain.Command
		want string
	}{
		{"placeholder", domain.PlaceholderCommand(domain.ReasonOutsideWindow), "com"},
		{"no args", domain.Command{Verb: domain.VerbChdir}, "cd()"},
		{"one arg", domain.Command{Verb: domain.VerbMkdir, Args: []string{"/user/alice/home/a"}}, "mkdir('/user/alice/home/a')"},
		{"two args", domain.Command{Verb: domain.VerbMove, Args: []string{"/a", "/b"}}, "mv('/a', '/b')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Event(tt.cmd); got != tt.want {
				t.Errorf("Event() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFactScenario(t *testing.T) {
	commands := []domain.Command{
		{Verb: domain.VerbMkdir, Args: []string{"/user/alice/home/a"}},
		{Verb: domain.VerbList, Args: []string{"/user/alice/home"}},
	}
	want := "lohmm([mkdir('/user/alice/home/a'), ls('/user/alice/home')])."
	if got := Fact(commands); got != want {
		t.Errorf("Fact() = %q, want %q", got, want)
	}
}

func TestWriteFacts(t *testing.T) {
	sessions := []*domain.Session{
		{Commands: []domain.Command{{Verb: domain.VerbMkdir, Args: []string{"/x"}}, domain.PlaceholderCommand(domain.ReasonUnknownVerb)}},
		{Commands: []domain.Command{{Verb: domain.VerbMkdir, Args: []string{"/y"}}}},
	}
	var buf bytes.Buffer
	if err := WriteFacts(&buf, sessions); err != nil {
		t.Fatalf("WriteFacts failed: %v", err)
	}
	want := "lohmm([mkdir('/x'), com]).\nlohmm([mkdir('/y')]).\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriteDomain(t *testing.T) {
	paths := domain.NewPathDomain()
	paths.Add("/user/b")
	paths.Add("/user/a")

	var buf bytes.Buffer
	if err := WriteDomain(&buf, paths); err != nil {
		t.Fatalf("WriteDomain failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(Signatures) {
		t.Fatalf("got %d lines, want %d", len(lines), len(Signatures))
	}
	if want := "values(mu(mkdir/2, 1), ['/user/a', '/user/b'])."; lines[0] != want {
		t.Errorf("lines[0] = %q, want %q", lines[0], want)
	}
	if want := "values(mu(mv/3, 2), ['/user/a', '/user/b'])."; lines[6] != want {
		t.Errorf("lines[6] = %q, want %q", lines[6], want)
	}
}

func TestWriteDomainEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDomain(&buf, domain.NewPathDomain()); err != nil {
		t.Fatalf("WriteDomain failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "values(mu(mkdir/2, 1), []).\n") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestStored(t *testing.T) {
	sessions := []*domain.Session{
		{
			Raw:      domain.RawSession{Source: "scientist-3", Ordinal: 7},
			Base:     "/user/alice/home",
			Commands: []domain.Command{{Verb: domain.VerbChdir}, domain.PlaceholderCommand(domain.ReasonBareMkdir)},
		},
	}
	got := Stored("run-1", sessions)
	if len(got) != 1 {
		t.Fatalf("got %d records", len(got))
	}
	want := domain.StoredSession{
		RunID:      "run-1",
		Source:     "scientist-3",
		Ordinal:    7,
		Base:       "/user/alice/home",
		EventCount: 2,
		Fact:       "lohmm([cd(), com]).",
	}
	if got[0] != want {
		t.Errorf("Stored() = %+v, want %+v", got[0], want)
	}
}
