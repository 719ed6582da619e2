// Package processor composes per-line transforms and predicates.
//
// A Transform rewrites a raw line (the decorator); a Predicate decides
// whether the rewritten line is counted (the filter). Lists of either are
// folded into a single function: transforms left to right, predicates as a
// short-circuit conjunction or disjunction.
//
//	p := processor.Make(
//	    []processor.Transform{linefunc.Extract(re, 1), linefunc.Trim},
//	    []processor.Predicate{linefunc.NotEqual("debug"), linefunc.NotEmpty},
//	)
//	p.AddDisjunctiveFilter(linefunc.Equal("keep"))
//	line, ok := p.ProcessLine(raw)
//
// All functions here are pure; none of them can fail.
package processor
