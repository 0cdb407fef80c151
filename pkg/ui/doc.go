// Package ui prints status lines to stderr and renders the optional report
// summary. Nothing here writes to stdout, which carries the JSON report.
package ui
