package resolver

import (
	"strings"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// StripNamespace removes leading colon-delimited segments from target until
// it has no more colons than source. A target that would be stripped to
// nothing is returned unchanged. Applying it twice is the same as once.
func StripNamespace(source, target string) string {
	want := domain.ColonCount(source)
	stripped := target
	for domain.ColonCount(stripped) > want {
		i := strings.IndexByte(stripped, ':')
		stripped = strings.TrimSpace(stripped[i+1:])
	}
	if stripped == "" {
		return target
	}
	return stripped
}

func cleanup(raw []Row, opts Options) []Row {
	out := make([]Row, 0, len(raw))
	seen := make(map[Row]struct{}, len(raw))
	for _, r := range raw {
		if opts.StripNamespaces && r.Target != "" {
			r.Target = StripNamespace(r.Source, r.Target)
		}
		if opts.CollapseDuplicates {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

// untranslated returns the distinct source titles of raw rows without a
// translation, in first-seen order.
func untranslated(raw []Row) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range raw {
		if r.Translated() {
			continue
		}
		if _, dup := seen[r.Source]; dup {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
