package aggregate

// Entry is one key of a table with its count.
type Entry struct {
	Line  string
	Count int
}

// state is the storage shared by Table and Snapshot.
type state struct {
	order []string
	freq  map[string]int
	total int
}

// Table is an insertion-ordered frequency table. Every present key has a
// count of at least one. It is not safe for concurrent use.
type Table struct {
	state
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{state: state{freq: make(map[string]int)}}
}

// Add increments the count for line, inserting it with count 1 when absent.
// New keys are appended to the traversal order.
func (t *Table) Add(line string) {
	if t.freq == nil {
		t.freq = make(map[string]int)
	}
	if _, ok := t.freq[line]; !ok {
		t.order = append(t.order, line)
	}
	t.freq[line]++
	t.total++
}

// Update applies one pipeline result to t: when ok is false the table is
// left unchanged, otherwise line is counted once. It returns t.
func Update(t *Table, line string, ok bool) *Table {
	if ok {
		t.Add(line)
	}
	return t
}

// Snapshot returns an immutable copy of the current state.
func (t *Table) Snapshot() Snapshot {
	order := make([]string, len(t.order))
	copy(order, t.order)
	freq := make(map[string]int, len(t.freq))
	for k, v := range t.freq {
		freq[k] = v
	}
	return Snapshot{state: state{order: order, freq: freq, total: t.total}}
}

// Snapshot is a read-only view of a Table at one point in time.
// The zero value is an empty snapshot.
type Snapshot struct {
	state
}

// Count returns the number of occurrences of line, 0 when absent.
func (s state) Count(line string) int {
	return s.freq[line]
}

// Len returns the number of distinct keys.
func (s state) Len() int {
	return len(s.order)
}

// Total returns the sum of all counts.
func (s state) Total() int {
	return s.total
}

// Keys returns the distinct keys in first-occurrence order.
func (s state) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Entries returns every key with its count in first-occurrence order.
func (s state) Entries() []Entry {
	entries := make([]Entry, len(s.order))
	for i, k := range s.order {
		entries[i] = Entry{Line: k, Count: s.freq[k]}
	}
	return entries
}

// Each calls fn for every key in first-occurrence order until fn returns false.
func (s state) Each(fn func(line string, count int) bool) {
	for _, k := range s.order {
		if !fn(k, s.freq[k]) {
			return
		}
	}
}
