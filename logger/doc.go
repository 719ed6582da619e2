// Package logger provides structured logging for linetally using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. Reports are written to
// stdout by the command, so the default log output is stderr.
//
// # Configuration
//
//	logging:
//	  level: "warn"
//	  format: "console"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get(logger.ComponentSource)
//	log.Info("reopened", logger.Fields("path", path, "offset", off))
package logger
