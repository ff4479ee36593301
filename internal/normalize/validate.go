package normalize

import "github.com/ashureev/lohmm-traces/internal/domain"

// HasAnchor reports whether any command is the anchor verb. Sessions without
// one are dropped before windowing.
func HasAnchor(commands []domain.Command) bool {
	for _, c := range commands {
		if c.IsAnchor() {
			return true
		}
	}
	return false
}
