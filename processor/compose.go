package processor

// Transform maps one line to another.
type Transform func(string) string

// Predicate reports whether a line is accepted.
type Predicate func(string) bool

// Identity returns its input unchanged.
func Identity(s string) string { return s }

// AcceptAll accepts every line.
func AcceptAll(string) bool { return true }

// RejectAll rejects every line.
func RejectAll(string) bool { return false }

// ComposeTransforms returns a Transform applying fs in order, each consuming
// the previous output. An empty list composes to Identity.
func ComposeTransforms(fs ...Transform) Transform {
	if len(fs) == 0 {
		return Identity
	}
	fs = compactTransforms(fs)
	return func(s string) string {
		for _, f := range fs {
			s = f(s)
		}
		return s
	}
}

// ComposePredicates returns the conjunction of fs. Evaluation is left to
// right and stops at the first false. An empty list composes to AcceptAll.
func ComposePredicates(fs ...Predicate) Predicate {
	if len(fs) == 0 {
		return AcceptAll
	}
	fs = compactPredicates(fs)
	return func(s string) bool {
		for _, f := range fs {
			if !f(s) {
				return false
			}
		}
		return true
	}
}

// ComposeDisjunctive returns the disjunction of fs. Evaluation is left to
// right and stops at the first true. An empty list composes to RejectAll.
func ComposeDisjunctive(fs ...Predicate) Predicate {
	if len(fs) == 0 {
		return RejectAll
	}
	fs = compactPredicates(fs)
	return func(s string) bool {
		for _, f := range fs {
			if f(s) {
				return true
			}
		}
		return false
	}
}

// ProcessLine applies decorator to raw, then filter to the result. It returns
// the transformed line and true when filter accepts it, or "" and false when
// the line must not be counted. A nil decorator or filter acts as Identity or
// AcceptAll.
func ProcessLine(raw string, decorator Transform, filter Predicate) (string, bool) {
	line := raw
	if decorator != nil {
		line = decorator(raw)
	}
	if filter != nil && !filter(line) {
		return "", false
	}
	return line, true
}

// compactTransforms and compactPredicates copy fs without nil entries so
// later appends by the caller cannot change an already composed function.
func compactTransforms(fs []Transform) []Transform {
	out := make([]Transform, 0, len(fs))
	for _, f := range fs {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

func compactPredicates(fs []Predicate) []Predicate {
	out := make([]Predicate, 0, len(fs))
	for _, f := range fs {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
