package backends

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Match is a successful filesystem lookup of a template name.
type Match struct {
	// Path is the resolved absolute or root-relative file path.
	Path string
	// Root is the search root the name resolved under.
	Root Root
}

// LookupFile resolves a slash-separated template name against ordered search
// roots, returning the first root containing a regular file of that name.
// Names that are absolute or escape the root are never resolved. The returned
// slice lists the directories consulted, for not-found diagnostics.
func LookupFile(roots []Root, name string) (Match, []string, bool) {
	tried := make([]string, 0, len(roots))
	if !ValidName(name) {
		for _, root := range roots {
			tried = append(tried, root.Dir)
		}
		return Match{}, tried, false
	}

	rel := filepath.FromSlash(name)
	for _, root := range roots {
		tried = append(tried, root.Dir)
		full := filepath.Join(root.Dir, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		return Match{Path: full, Root: root}, nil, true
	}
	return Match{}, tried, false
}

// ValidName reports whether a template name is a well-formed relative
// slash-separated path that stays inside a search root.
func ValidName(name string) bool {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return false
	}
	clean := path.Clean(name)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
