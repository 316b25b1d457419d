package resolver

import "github.com/heartmarshall/wikititles/internal/domain"

// Options controls the display cleanup applied to a resolution.
type Options struct {
	// StripNamespaces removes namespace prefixes that a translated title
	// carries and its source title does not.
	StripNamespaces bool
	// CollapseDuplicates drops exact duplicate rows after cleanup.
	CollapseDuplicates bool
}

// DefaultOptions enables both cleanup passes.
func DefaultOptions() Options {
	return Options{StripNamespaces: true, CollapseDuplicates: true}
}

// Row is one (title_source, title_target) pair. An empty Target means the
// page was found but has no translation.
type Row struct {
	Source string
	Target string
}

// Translated reports whether the row carries a translation.
func (r Row) Translated() bool { return r.Target != "" }

// Result is the outcome of a successful resolution.
type Result struct {
	Input      string
	Normalized string
	Source     string
	Target     string
	Direction  domain.Direction

	// Rows is the joined table after namespace cleanup and deduplication.
	Rows []Row
	// Raw is the joined table exactly as read from the stores.
	Raw []Row
	// Untranslated lists distinct source titles that have no translation.
	Untranslated []string
}

// Translations returns the rows that carry a translation.
func (r *Result) Translations() []Row {
	out := make([]Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Translated() {
			out = append(out, row)
		}
	}
	return out
}

// Outcome classifies the result for presentation.
func (r *Result) Outcome() domain.Outcome {
	switch n := len(r.Translations()); {
	case n == 0:
		return domain.OutcomeUntranslated
	case n == 1:
		return domain.OutcomeSingle
	default:
		return domain.OutcomeMultiple
	}
}

func hasTranslation(rows []Row) bool {
	for _, r := range rows {
		if r.Translated() {
			return true
		}
	}
	return false
}
