package history

import (
	"path/filepath"
	"regexp"
)

// PatternFilter decides which paths are kept out of the history. A path is
// excluded when it matches any exclude pattern and none of the reinclude
// patterns; reinclude is an escape hatch from the blacklist, not a general
// whitelist. Patterns are compiled once, at configuration time.
type PatternFilter struct {
	exclude   []*regexp.Regexp
	reinclude []*regexp.Regexp
}

// NewPatternFilter compiles the given pattern lists. A malformed pattern is
// rejected here, naming the pattern, so matching never fails later.
func NewPatternFilter(exclude, reinclude []string) (*PatternFilter, error) {
	f := &PatternFilter{}

	for _, pat := range exclude {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, &ConfigError{Option: "path_exclude_patterns", Value: pat, Message: err.Error()}
		}
		f.exclude = append(f.exclude, re)
	}
	for _, pat := range reinclude {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, &ConfigError{Option: "path_reinclude_patterns", Value: pat, Message: err.Error()}
		}
		f.reinclude = append(f.reinclude, re)
	}

	return f, nil
}

// Excluded reports whether path should be kept out of the history. The path
// is normalized to forward slashes first so patterns behave the same on
// every platform.
func (f *PatternFilter) Excluded(path string) bool {
	if f == nil || len(f.exclude) == 0 {
		return false
	}

	normalized := filepath.ToSlash(filepath.Clean(path))

	for _, ex := range f.exclude {
		if !ex.MatchString(normalized) {
			continue
		}
		// Reinclude patterns are only consulted for paths an exclude
		// pattern already caught.
		for _, re := range f.reinclude {
			if re.MatchString(normalized) {
				return false
			}
		}
		return true
	}

	return false
}
