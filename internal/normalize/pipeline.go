package normalize

import (
	"errors"
	"log/slog"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// ErrNoAnchor is returned for sessions without any anchor command. Such
// sessions are dropped, not failed.
var ErrNoAnchor = errors.New("session has no anchor command")

// Pipeline normalizes raw sessions one at a time. It holds no per-session
// state and is safe for concurrent use.
type Pipeline struct {
	window int
	logger *slog.Logger
}

// NewPipeline creates a pipeline keeping window positions after each anchor.
func NewPipeline(window int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if window < 0 {
		window = DefaultWindow
	}
	return &Pipeline{window: window, logger: logger}
}

// Window returns the configured window width.
func (p *Pipeline) Window() int {
	return p.window
}

// Process runs alias resolution, validation, windowing, simplification and
// path resolution over raw. The returned session owns its commands and its
// path domain.
func (p *Pipeline) Process(raw domain.RawSession) (*domain.Session, error) {
	session := domain.NewSession(raw)
	session.Commands = ResolveAliases(raw.Actions)

	if !HasAnchor(session.Commands) {
		return nil, ErrNoAnchor
	}
	if !ApplyWindow(session.Commands, p.window) {
		return nil, ErrNoAnchor
	}

	SimplifyAll(session.Commands)

	directories := session.Directories()
	session.Base = DiscoverBase(directories)
	if session.Base == "" {
		p.logger.Debug("No base directory found, home paths will be degenerate",
			"session", session.Key(),
		)
	}

	for i, cmd := range session.Commands {
		resolved := ResolveCommand(cmd, directories[i], session.Base)
		session.Commands[i] = resolved
		for _, path := range resolved.Args {
			session.Paths.Add(path)
		}
	}

	return session, nil
}
