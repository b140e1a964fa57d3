package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// namedGroupDecl matches named capture group declarations in pattern source.
// Both .NET-style (?<name>...) and Python-style (?P<name>...) are accepted.
var namedGroupDecl = regexp.MustCompile(`\(\?P?<([a-zA-Z][a-zA-Z0-9]*)>`)

// namedGroupNames scans pattern source for declared group names in
// left-to-right order, deduplicated.
func namedGroupNames(patternSrc string) []string {
	decls := namedGroupDecl.FindAllStringSubmatch(patternSrc, -1)
	names := make([]string, 0, len(decls))
	seen := make(map[string]bool, len(decls))
	for _, d := range decls {
		if !seen[d[1]] {
			seen[d[1]] = true
			names = append(names, d[1])
		}
	}
	return names
}

// extractFields runs re against text with find semantics and recovers
// captured fields. Named groups declared in the pattern source are read by
// name; groups that did not participate or captured only whitespace are
// omitted. When the named pass yields nothing, positional groups are
// returned as group1, group2, ... in declaration order. All values are
// trimmed; empty-after-trim values are never included.
//
// The dual-mode extraction lets template authors choose any field name
// without extraction code knowing the vocabulary in advance.
func extractFields(re *regexp2.Regexp, patternSrc, text string) (map[string]string, bool, error) {
	match, err := re.FindStringMatch(text)
	if err != nil {
		return nil, false, fmt.Errorf("executing pattern: %w", err)
	}
	if match == nil {
		return map[string]string{}, false, nil
	}

	fields := make(map[string]string)
	for _, name := range namedGroupNames(patternSrc) {
		g := match.GroupByName(name)
		if g == nil || len(g.Captures) == 0 {
			continue
		}
		if v := strings.TrimSpace(g.String()); v != "" {
			fields[name] = v
		}
	}

	if len(fields) == 0 {
		groups := match.Groups()
		for i := 1; i < len(groups); i++ {
			if len(groups[i].Captures) == 0 {
				continue
			}
			if v := strings.TrimSpace(groups[i].String()); v != "" {
				fields[fmt.Sprintf("group%d", i)] = v
			}
		}
	}

	return fields, true, nil
}
