// Package trace splits Greenberg Unix transcript files into tagged session blocks.
package trace

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// Line tags used by the transcript format. Only C, A and D carry data the
// normalizer needs; the rest are skipped.
const (
	TagStart     = 'S' // session start, opens a block
	TagEnd       = 'E' // session end
	TagCommand   = 'C' // command as typed
	TagAlias     = 'A' // alias expansion or NIL
	TagDirectory = 'D' // working directory
	TagHistory   = 'H' // history reference
	TagError     = 'X' // error flag
)

// sessionBoundary separates session blocks within a source.
const sessionBoundary = "\nS"

// headerLines is the number of lines at the top of each block that are discarded.
const headerLines = 2

// tagPrefixLen is the length of the "C " style prefix stripped from payload lines.
const tagPrefixLen = 2

// Block is the payload lines of one session.
type Block struct {
	Ordinal int
	Lines   []string
}

// SplitBlocks splits a transcript into blocks and drops each block's header.
func SplitBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, sessionBoundary)

	blocks := make([]Block, 0, len(parts))
	for i, part := range parts {
		lines := strings.Split(part, "\n")
		if len(lines) <= headerLines {
			lines = nil
		} else {
			lines = lines[headerLines:]
		}
		blocks = append(blocks, Block{Ordinal: i, Lines: lines})
	}
	return blocks
}

// ParseBlock sorts the non-empty lines of a block into the command, alias and
// directory streams with their tag prefix removed.
func ParseBlock(lines []string) (commands, aliases, directories []string) {
	for _, line := range lines {
		if line == "" {
			continue
		}

		payload := ""
		if len(line) > tagPrefixLen {
			payload = line[tagPrefixLen:]
		}

		switch line[0] {
		case TagCommand:
			commands = append(commands, payload)
		case TagAlias:
			aliases = append(aliases, payload)
		case TagDirectory:
			directories = append(directories, payload)
		}
	}
	return commands, aliases, directories
}

// Result is the outcome of segmenting one source.
type Result struct {
	Source     string
	Blocks     int
	Sessions   []domain.RawSession
	Misaligned []int // ordinals of blocks skipped for stream misalignment
}

// Segmenter turns transcript text into raw sessions.
type Segmenter struct {
	logger *slog.Logger
}

// NewSegmenter creates a segmenter.
func NewSegmenter(logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{logger: logger}
}

// Segment parses every block of text. Blocks whose streams do not line up are
// skipped and reported in Result.Misaligned.
func (s *Segmenter) Segment(source, text string) Result {
	blocks := SplitBlocks(text)
	result := Result{
		Source:   source,
		Blocks:   len(blocks),
		Sessions: make([]domain.RawSession, 0, len(blocks)),
	}

	for _, block := range blocks {
		commands, aliases, directories := ParseBlock(block.Lines)
		actions, err := domain.ZipStreams(commands, aliases, directories)
		if err != nil {
			if errors.Is(err, domain.ErrStreamMisalignment) {
				s.logger.Debug("Skipping misaligned session",
					"source", source,
					"ordinal", block.Ordinal,
					"error", err,
				)
			}
			result.Misaligned = append(result.Misaligned, block.Ordinal)
			continue
		}

		result.Sessions = append(result.Sessions, domain.RawSession{
			Source:  source,
			Ordinal: block.Ordinal,
			Actions: actions,
		})
	}

	return result
}
