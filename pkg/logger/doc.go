// Package logger provides structured logging for snooper.
//
// It wraps zerolog behind a small Logger interface. Console output is written
// to stderr so that the JSON report on stdout stays machine readable.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("target", name).Info("Building report")
//
// Tests can use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
