package prompt

import (
	"regexp"
	"sort"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// SafeFormat fills {name} placeholders in template from vars. Placeholders
// with no value stay in the output as literal {name} and are returned in the
// sorted missing list, so callers can log incomplete templates instead of
// failing the whole prompt.
func SafeFormat(template string, vars map[string]string) (string, []string) {
	missingSet := make(map[string]struct{})

	out := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		missingSet[name] = struct{}{}
		return match
	})

	missing := make([]string, 0, len(missingSet))
	for name := range missingSet {
		missing = append(missing, name)
	}
	sort.Strings(missing)

	return out, missing
}

// Placeholders returns the distinct placeholder names in template, sorted.
func Placeholders(template string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format is SafeFormat for callers that do not care about the missing list.
func Format(template string, vars map[string]string) string {
	out, _ := SafeFormat(template, vars)
	return out
}

// JoinSections joins non-empty sections with blank lines, for assembling
// prompts from optional parts.
func JoinSections(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, "\n\n")
}
