// Package lohmm renders normalized sessions as PRISM facts for LOHMM learning.
package lohmm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// Signature is one predicate position of the domain declaration.
type Signature struct {
	Verb     domain.Verb
	Arity    int
	Position int
}

func (s Signature) String() string {
	return fmt.Sprintf("mu(%s/%d, %d)", s.Verb, s.Arity, s.Position)
}

// Signatures lists every position that takes a path, in declaration order.
var Signatures = []Signature{
	{domain.VerbMkdir, 2, 1},
	{domain.VerbChdir, 2, 1},
	{domain.VerbList, 2, 1},
	{domain.VerbCopy, 3, 1},
	{domain.VerbCopy, 3, 2},
	{domain.VerbMove, 3, 1},
	{domain.VerbMove, 3, 2},
}

// Event renders one command, e.g. cp('/a', '/b'). Placeholders render as com.
func Event(c domain.Command) string {
	if c.IsPlaceholder() {
		return string(domain.Placeholder)
	}
	return string(c.Verb) + "(" + quoteList(c.Args) + ")"
}

// Fact renders a whole session as a single lohmm/1 fact.
func Fact(commands []domain.Command) string {
	events := make([]string, len(commands))
	for i, c := range commands {
		events[i] = Event(c)
	}
	return "lohmm([" + strings.Join(events, ", ") + "])."
}

// Declaration renders the values/2 declaration of one signature.
func Declaration(sig Signature, paths []string) string {
	return "values(" + sig.String() + ", [" + quoteList(paths) + "])."
}

// WriteFacts writes one fact line per session.
func WriteFacts(w io.Writer, sessions []*domain.Session) error {
	bw := bufio.NewWriter(w)
	for _, s := range sessions {
		if _, err := bw.WriteString(Fact(s.Commands) + "\n"); err != nil {
			return fmt.Errorf("write fact: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush facts: %w", err)
	}
	return nil
}

// WriteDomain writes the declaration of every signature over the sorted path domain.
func WriteDomain(w io.Writer, paths *domain.PathDomain) error {
	sorted := paths.Sorted()
	bw := bufio.NewWriter(w)
	for _, sig := range Signatures {
		if _, err := bw.WriteString(Declaration(sig, sorted) + "\n"); err != nil {
			return fmt.Errorf("write declaration: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush declarations: %w", err)
	}
	return nil
}

// quoteList single-quotes each item. Quotes were stripped during resolution,
// so no escaping is done.
func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}

// Stored serializes sessions for persistence under runID, keeping their order.
func Stored(runID string, sessions []*domain.Session) []domain.StoredSession {
	out := make([]domain.StoredSession, len(sessions))
	for i, s := range sessions {
		out[i] = domain.StoredSession{
			RunID:      runID,
			Source:     s.Raw.Source,
			Ordinal:    s.Raw.Ordinal,
			Base:       s.Base,
			EventCount: len(s.Commands),
			Fact:       Fact(s.Commands),
		}
	}
	return out
}
