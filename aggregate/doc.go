// Package aggregate keeps the ordered frequency table of accepted lines.
//
// A Table maps each distinct line to the number of times it was seen and
// remembers the order in which keys first appeared. Traversal always follows
// that order. A Table has exactly one writer; readers that need a stable
// view take a Snapshot, which later updates never reach.
package aggregate
