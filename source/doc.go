// Package source reads lines from a file that may still be growing.
//
// A File implements pipeline.Iterator[string]. In tail mode it never holds
// the file open while idle: when it runs out of complete lines it closes the
// handle, sleeps, reopens the same path and seeks back to the position right
// after the last line it returned. Appends made while the handle was
// released are picked up on the next poll. A file truncated below the
// cursor is seeked past its end and yields nothing until it grows back;
// WithResetOnTruncate restarts such a file from offset 0 instead.
//
//	f, err := source.ReadAll("app.log", 500*time.Millisecond)
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	for {
//		line, ok, err := f.Next(ctx)
//		...
//	}
package source
