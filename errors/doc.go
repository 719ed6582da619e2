// Package errors provides the coded error type shared by linetally packages.
//
// Every failure that reaches the command line is an *AppError carrying a
// machine-readable code and the process exit status it maps to. Lower
// layers wrap the underlying os/io error as the Cause so errors.Is and
// errors.As keep working through the chain.
package errors
