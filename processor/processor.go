package processor

// Processor holds one composed decorator and one composed filter and grows
// them through the Add methods. The zero value is not usable; use New or Make.
//
// A Processor is not safe for concurrent mutation. Decorator and Filter
// return the functions as composed at call time; later additions do not
// affect them.
type Processor struct {
	decorator Transform
	filter    Predicate
}

// New creates a Processor from a single decorator and filter.
// nil selects Identity and AcceptAll respectively.
func New(decorator Transform, filter Predicate) *Processor {
	if decorator == nil {
		decorator = Identity
	}
	if filter == nil {
		filter = AcceptAll
	}
	return &Processor{decorator: decorator, filter: filter}
}

// Make creates a Processor from ordered lists: decorators are composed with
// ComposeTransforms, filters with ComposePredicates.
func Make(decorators []Transform, filters []Predicate) *Processor {
	return New(ComposeTransforms(decorators...), ComposePredicates(filters...))
}

// AddDecorator appends f after the existing decorator chain.
func (p *Processor) AddDecorator(f Transform) *Processor {
	p.decorator = ComposeTransforms(p.decorator, f)
	return p
}

// AddFilter requires f in addition to the existing filter. The existing
// filter runs first; f only runs when it accepted.
func (p *Processor) AddFilter(f Predicate) *Processor {
	p.filter = ComposePredicates(p.filter, f)
	return p
}

// AddDisjunctiveFilter accepts a line when either the existing filter or f
// accepts it. The existing filter runs first; f only runs when it rejected.
func (p *Processor) AddDisjunctiveFilter(f Predicate) *Processor {
	p.filter = ComposeDisjunctive(p.filter, f)
	return p
}

// Decorator returns the composed transform.
func (p *Processor) Decorator() Transform { return p.decorator }

// Filter returns the composed predicate.
func (p *Processor) Filter() Predicate { return p.filter }

// ProcessLine runs raw through the decorator and filter.
func (p *Processor) ProcessLine(raw string) (string, bool) {
	return ProcessLine(raw, p.decorator, p.filter)
}
