// Package report renders frequency tables as plain text.
//
// Batch output:
//
//	Total count:
//	txt: 1
//	csv: 1
//
// Stream output repeats the whole table after every line:
//
//	Cumulative count:
//	----
//	txt: 1
//	----
//	txt: 1
//	csv: 1
package report
