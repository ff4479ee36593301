package normalize

import (
	"regexp"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// PathShape classifies a path argument by its first character.
type PathShape int

const (
	ShapeRelative PathShape = iota // no special leading character
	ShapeAbsolute                  // leads with /
	ShapeHome                      // leads with ~
	ShapeDot                       // leads with .
)

func (s PathShape) String() string {
	switch s {
	case ShapeRelative:
		return "relative"
	case ShapeAbsolute:
		return "absolute"
	case ShapeHome:
		return "home"
	case ShapeDot:
		return "dot"
	default:
		return "unknown"
	}
}

const (
	separator  = "/"
	homeMarker = "~"
	dotMarker  = "."
	parentRef  = ".."
)

var (
	// Home-style directories: /user/<name> with at most one more component.
	basePattern = regexp.MustCompile(`/user/[\w.-]+(?:/[\w.-]+)?`)

	// Home root of a base directory: its /user/<name>/ prefix.
	homeRootPattern = regexp.MustCompile(`^/user/[\w.-]+`)

	// Single-character variants of the user mount point, e.g. /userb/.
	userVariantPattern = regexp.MustCompile(`/user\w/`)

	quoteStripper = strings.NewReplacer("'", "", `"`, "")
)

// Classify returns the shape of a non-empty path argument.
func Classify(arg string) PathShape {
	switch {
	case strings.HasPrefix(arg, separator):
		return ShapeAbsolute
	case strings.HasPrefix(arg, homeMarker):
		return ShapeHome
	case strings.HasPrefix(arg, dotMarker):
		return ShapeDot
	default:
		return ShapeRelative
	}
}

// DiscoverBase returns the first home-style path found in the directory
// stream, or "" if there is none. The first match wins even when it belongs
// to another user's tree.
func DiscoverBase(directories []string) string {
	for _, dir := range directories {
		if m := basePattern.FindString(dir); m != "" {
			return m
		}
	}
	return ""
}

// HomeRoot returns the /user/<name>/ prefix of base, or "" when base is not
// home-style.
func HomeRoot(base string) string {
	m := homeRootPattern.FindString(base)
	if m == "" {
		return ""
	}
	return m + separator
}

// ResolvePath rewrites one path argument into an absolute path using the
// line's working directory and the session base directory.
func ResolvePath(arg, directory, base string) string {
	var resolved string
	switch Classify(arg) {
	case ShapeRelative:
		resolved = joinDir(directory, arg)
	case ShapeHome:
		resolved = resolveHome(arg, base)
	case ShapeAbsolute:
		resolved = userVariantPattern.ReplaceAllString(arg, "/user/")
	case ShapeDot:
		resolved = resolveDot(arg, directory)
	}
	return quoteStripper.Replace(resolved)
}

func resolveHome(arg, base string) string {
	rest := strings.TrimPrefix(arg, homeMarker)
	switch {
	case rest == "":
		return base
	case strings.HasPrefix(rest, separator):
		return base + rest
	default:
		// ~name refers to a sibling home under the same /user/<name>/ root.
		return HomeRoot(base) + rest
	}
}

func resolveDot(arg, directory string) string {
	switch {
	case arg == dotMarker:
		return directory
	case strings.HasPrefix(arg, parentRef):
		if resolved, ok := resolveParent(arg, directory); ok {
			return resolved
		}
	}
	// Any other dot-prefixed token, such as .cshrc or ./x, is appended verbatim.
	return directory + separator + arg
}

// resolveParent strips one trailing component of directory per leading ".."
// segment of arg and appends what follows the chain. Chains longer than the
// directory clamp at the root. ok is false when arg has no ".." segment
// (e.g. "..foo").
func resolveParent(arg, directory string) (string, bool) {
	segments := strings.Split(arg, separator)
	n := 0
	for n < len(segments) && segments[n] == parentRef {
		n++
	}
	if n == 0 {
		return "", false
	}
	rest := strings.Join(segments[n:], separator)

	components := strings.Split(directory, separator)
	prefix := ""
	if keep := len(components) - n; keep > 0 {
		prefix = strings.Join(components[:keep], separator)
	}

	if prefix == "" {
		return separator + rest, true
	}
	if rest == "" {
		return prefix, true
	}
	return prefix + separator + rest, true
}

// joinDir appends a relative name to directory without doubling the root separator.
func joinDir(directory, name string) string {
	if directory == separator {
		return directory + name
	}
	return directory + separator + name
}

// ResolveCommand resolves the path arguments of a simplified command. The
// combination of verb and argument count decides validity; anything else
// becomes a placeholder.
func ResolveCommand(cmd domain.Command, directory, base string) domain.Command {
	if cmd.IsPlaceholder() {
		return cmd
	}

	tokens := strings.Split(cmd.Text, " ")
	for len(tokens) > 1 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	args := tokens[1:]
	for _, a := range args {
		if a == "" {
			return domain.PlaceholderCommand(domain.ReasonMalformedArity)
		}
	}

	verb := cmd.Verb
	switch len(tokens) {
	case 1:
		switch verb {
		case domain.VerbChdir:
			return resolved(verb, base)
		case domain.VerbList:
			return resolved(verb, directory)
		}
	case 2:
		switch verb {
		case domain.VerbList, domain.VerbChdir, domain.VerbMkdir:
			return resolved(verb, ResolvePath(args[0], directory, base))
		}
	case 3:
		switch verb {
		case domain.VerbCopy, domain.VerbMove:
			return resolved(verb,
				ResolvePath(args[0], directory, base),
				ResolvePath(args[1], directory, base),
			)
		}
	}
	return domain.PlaceholderCommand(domain.ReasonMalformedArity)
}

// resolved builds a resolved command. Empty paths, such as an implicit cd
// target in a session without a base directory, are left out.
func resolved(verb domain.Verb, paths ...string) domain.Command {
	args := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			args = append(args, p)
		}
	}
	cmd := domain.Command{Verb: verb, Args: args}
	cmd.Text = cmd.String()
	return cmd
}
