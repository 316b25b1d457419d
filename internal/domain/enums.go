package domain

// TableKind identifies which dump table a file holds.
type TableKind string

const (
	TableKindPage      TableKind = "page"
	TableKindLangLinks TableKind = "langlinks"
)

func (k TableKind) String() string { return string(k) }

func (k TableKind) IsValid() bool {
	switch k {
	case TableKindPage, TableKindLangLinks:
		return true
	}
	return false
}

// Direction is the search mode the resolver used to produce a result.
type Direction string

const (
	// DirectionForward searches the source language's Title Index and joins
	// with the (source, target) table.
	DirectionForward Direction = "FORWARD"
	// DirectionReverse searches the target titles of the (target, source)
	// table and joins back to target pages.
	DirectionReverse Direction = "REVERSE"
)

func (d Direction) String() string { return string(d) }

// Outcome distinguishes the non-error presentational cases of a resolution.
type Outcome string

const (
	OutcomeSingle       Outcome = "SINGLE"
	OutcomeMultiple     Outcome = "MULTIPLE"
	OutcomeUntranslated Outcome = "UNTRANSLATED"
)

func (o Outcome) String() string { return string(o) }
