package normalize

import "github.com/ashureev/lohmm-traces/internal/domain"

// DefaultWindow is the number of positions kept after each anchor, in
// addition to the anchor itself.
const DefaultWindow = 10

// ApplyWindow keeps every index k..k+width following an anchor at k and
// overwrites all other commands with the placeholder. It reports whether
// any index was kept. A negative width means DefaultWindow, as in NewPipeline.
func ApplyWindow(commands []domain.Command, width int) bool {
	if width < 0 {
		width = DefaultWindow
	}

	kept := make([]bool, len(commands))
	anchored := false
	for k, c := range commands {
		if !c.IsAnchor() {
			continue
		}
		anchored = true
		for j := k; j <= k+width && j < len(commands); j++ {
			kept[j] = true
		}
	}

	for i := range commands {
		if kept[i] || commands[i].IsPlaceholder() {
			continue
		}
		commands[i] = domain.PlaceholderCommand(domain.ReasonOutsideWindow)
	}
	return anchored
}
