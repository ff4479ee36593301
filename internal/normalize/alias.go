// Package normalize reduces raw sessions to LOHMM event sequences: alias
// resolution, anchor validation, window filtering, command simplification
// and path resolution.
package normalize

import (
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// ResolveAliases returns one command per action. The alias expansion is
// preferred over the typed command. Verbs outside the vocabulary and bare
// mkdir calls become placeholders.
func ResolveAliases(actions []domain.Action) []domain.Command {
	commands := make([]domain.Command, len(actions))
	for i, action := range actions {
		text := action.Text()
		tokens := strings.Split(text, " ")

		verb, ok := domain.ParseVerb(tokens[0])
		switch {
		case !ok:
			commands[i] = domain.PlaceholderCommand(domain.ReasonUnknownVerb)
		case verb == domain.AnchorVerb && len(tokens) == 1:
			commands[i] = domain.PlaceholderCommand(domain.ReasonBareMkdir)
		default:
			commands[i] = domain.Command{Verb: verb, Text: text}
		}
	}
	return commands
}
