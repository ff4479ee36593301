package normalize

import (
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// truncateAt lists the shell separators a command is cut at, in order.
var truncateAt = []string{"|", ";", "&"}

// Simplify reduces a command line to its first simple command without flags.
// Truncation happens before flag removal.
func Simplify(text string) string {
	for _, sep := range truncateAt {
		if i := strings.Index(text, sep); i >= 0 {
			text = text[:i]
		}
	}

	tokens := strings.Split(text, " ")
	kept := tokens[:0]
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// SimplifyAll simplifies every non-placeholder command in place.
func SimplifyAll(commands []domain.Command) {
	for i := range commands {
		if commands[i].IsPlaceholder() {
			continue
		}
		commands[i].Text = Simplify(commands[i].Text)
	}
}
