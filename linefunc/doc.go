// Package linefunc holds ready-made transforms and predicates for
// processor.Processor, and the default pipeline used by the command.
package linefunc
