package domain

import "sort"

// PathDomain is the set of distinct resolved paths. It is not safe for
// concurrent use; workers keep their own and merge at the end.
type PathDomain struct {
	paths map[string]struct{}
}

// NewPathDomain creates an empty path domain.
func NewPathDomain() *PathDomain {
	return &PathDomain{paths: make(map[string]struct{})}
}

// Add inserts path. Empty paths are ignored.
func (d *PathDomain) Add(path string) {
	if path == "" {
		return
	}
	d.paths[path] = struct{}{}
}

// Merge adds every path of other to d.
func (d *PathDomain) Merge(other *PathDomain) {
	if other == nil {
		return
	}
	for p := range other.paths {
		d.paths[p] = struct{}{}
	}
}

// Contains reports whether path is in the domain.
func (d *PathDomain) Contains(path string) bool {
	_, ok := d.paths[path]
	return ok
}

// Len returns the number of distinct paths.
func (d *PathDomain) Len() int {
	return len(d.paths)
}

// Sorted returns the paths in lexical order.
func (d *PathDomain) Sorted() []string {
	out := make([]string, 0, len(d.paths))
	for p := range d.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
