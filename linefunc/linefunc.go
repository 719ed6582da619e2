package linefunc

import (
	"regexp"
	"strings"

	"github.com/kbukum/linetally/processor"
)

// Extract returns the given capture group of the first match of re, or ""
// when the line does not match or the group did not participate.
func Extract(re *regexp.Regexp, group int) processor.Transform {
	return func(s string) string {
		m := re.FindStringSubmatch(s)
		if group < 0 || group >= len(m) {
			return ""
		}
		return m[group]
	}
}

// Lower maps the line to lower case.
func Lower(s string) string { return strings.ToLower(s) }

// Trim strips leading and trailing white space, line terminators included.
func Trim(s string) string { return strings.TrimSpace(s) }

// Equal accepts lines equal to want.
func Equal(want string) processor.Predicate {
	return func(s string) bool { return s == want }
}

// NotEqual accepts lines different from want.
func NotEqual(want string) processor.Predicate {
	return func(s string) bool { return s != want }
}

// NotEmpty accepts non-empty lines.
func NotEmpty(s string) bool { return s != "" }

// Matches accepts lines in which re finds a match.
func Matches(re *regexp.Regexp) processor.Predicate {
	return re.MatchString
}

// TestKeyPattern picks the word following "test." in a line.
var TestKeyPattern = regexp.MustCompile(`test\.(\w+)`)

// DefaultProcessor is the pipeline the command runs: extract the word after
// "test.", lower-case and trim it, then drop "debug" and empty results.
func DefaultProcessor() *processor.Processor {
	return processor.Make(
		[]processor.Transform{Extract(TestKeyPattern, 1), Lower, Trim},
		[]processor.Predicate{NotEqual("debug"), NotEmpty},
	)
}
