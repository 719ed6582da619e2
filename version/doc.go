// Package version reports build information for the linetally binary.
//
// Version, commit and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/linetally/version.Version=1.0.0"
package version
