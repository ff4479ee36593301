package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stats counts what the pipeline kept, dropped and downgraded.
type Stats struct {
	Sources            int `json:"sources"`
	Blocks             int `json:"blocks"`
	MisalignedSessions int `json:"misaligned_sessions"`
	NoAnchorSessions   int `json:"no_anchor_sessions"`
	KeptSessions       int `json:"kept_sessions"`
	Events             int `json:"events"`
	UnknownVerb        int `json:"unknown_verb"`
	BareMkdir          int `json:"bare_mkdir"`
	OutsideWindow      int `json:"outside_window"`
	MalformedArity     int `json:"malformed_arity"`
	Paths              int `json:"paths"`
}

// CountPlaceholder increments the counter for reason.
func (s *Stats) CountPlaceholder(reason PlaceholderReason) {
	switch reason {
	case ReasonUnknownVerb:
		s.UnknownVerb++
	case ReasonBareMkdir:
		s.BareMkdir++
	case ReasonOutsideWindow:
		s.OutsideWindow++
	case ReasonMalformedArity:
		s.MalformedArity++
	}
}

// CountSession records a kept session and the placeholders among its events.
func (s *Stats) CountSession(session *Session) {
	s.KeptSessions++
	s.Events += len(session.Commands)
	for _, c := range session.Commands {
		if c.IsPlaceholder() {
			s.CountPlaceholder(c.Reason)
		}
	}
}

// Add accumulates other into s. Paths is not summed since the domain is a set.
func (s *Stats) Add(other Stats) {
	s.Sources += other.Sources
	s.Blocks += other.Blocks
	s.MisalignedSessions += other.MisalignedSessions
	s.NoAnchorSessions += other.NoAnchorSessions
	s.KeptSessions += other.KeptSessions
	s.Events += other.Events
	s.UnknownVerb += other.UnknownVerb
	s.BareMkdir += other.BareMkdir
	s.OutsideWindow += other.OutsideWindow
	s.MalformedArity += other.MalformedArity
}

// Run is one normalization pass over a corpus.
type Run struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Sources        []string  `json:"sources"`
	Window         int       `json:"window"`
	Stats          Stats     `json:"stats"`
	ManifestDigest string    `json:"manifest_digest,omitempty"`
}

// NewRun creates a run with a fresh ID.
func NewRun(window int, startedAt time.Time) *Run {
	return &Run{
		RunID:     uuid.New().String(),
		StartedAt: startedAt,
		Window:    window,
	}
}

// Duration returns how long the run took, or 0 if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StoredSession is a serialized session as persisted for a run.
type StoredSession struct {
	RunID      string `json:"run_id"`
	Source     string `json:"source"`
	Ordinal    int    `json:"ordinal"`
	Base       string `json:"base"`
	EventCount int    `json:"event_count"`
	Fact       string `json:"fact"`
}
