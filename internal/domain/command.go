// Package domain contains the core types of the trace normalizer.
package domain

import "strings"

// Verb is the command name of a normalized event.
type Verb string

// LOHMM vocabulary.
const (
	VerbMkdir Verb = "mkdir" // anchor
	VerbList  Verb = "ls"
	VerbChdir Verb = "cd"
	VerbCopy  Verb = "cp"
	VerbMove  Verb = "mv"

	// Placeholder marks an event that carries no information for the model.
	Placeholder Verb = "com"
)

// AnchorVerb opens a relevance window.
const AnchorVerb = VerbMkdir

// Vocabulary lists the verbs kept by the alias resolver.
var Vocabulary = []Verb{VerbMkdir, VerbList, VerbChdir, VerbCopy, VerbMove}

// ParseVerb reports whether s names a vocabulary verb.
func ParseVerb(s string) (Verb, bool) {
	for _, v := range Vocabulary {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// PlaceholderReason records why an event was collapsed to the placeholder.
type PlaceholderReason int

const (
	ReasonNone           PlaceholderReason = iota
	ReasonUnknownVerb                      // verb outside the vocabulary
	ReasonBareMkdir                        // mkdir without arguments
	ReasonOutsideWindow                    // not within a window following an anchor
	ReasonMalformedArity                   // argument count the resolver does not support
)

func (r PlaceholderReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnknownVerb:
		return "unknown_verb"
	case ReasonBareMkdir:
		return "bare_mkdir"
	case ReasonOutsideWindow:
		return "outside_window"
	case ReasonMalformedArity:
		return "malformed_arity"
	default:
		return "unknown"
	}
}

// Command is a normalized command: either the placeholder or a vocabulary
// verb with its path arguments.
type Command struct {
	Verb   Verb
	Text   string   // command text while the pipeline rewrites it
	Args   []string // resolved path arguments
	Reason PlaceholderReason
}

// PlaceholderCommand returns a placeholder event tagged with reason.
func PlaceholderCommand(reason PlaceholderReason) Command {
	return Command{Verb: Placeholder, Text: string(Placeholder), Reason: reason}
}

// IsPlaceholder returns true if the command carries no information.
func (c Command) IsPlaceholder() bool {
	return c.Verb == Placeholder
}

// IsAnchor returns true if the command opens a relevance window.
func (c Command) IsAnchor() bool {
	return c.Verb == AnchorVerb
}

// String returns the command in shell form, e.g. "cp /a /b".
func (c Command) String() string {
	if c.IsPlaceholder() {
		return string(Placeholder)
	}
	if len(c.Args) == 0 {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + strings.Join(c.Args, " ")
}
