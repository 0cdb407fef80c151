// Package report aggregates a Reddit account's posts and comments into the
// JSON activity report.
//
// Items are bucketed by local hour (00:00 to 23:00) and weekday (Monday to
// Sunday). Both histograms always carry every key, in that order, so the
// emitted JSON has a stable shape even for an empty account.
package report
