// Package storage writes finished reports.
//
// A Writer with no path prints the JSON to stdout. With a path it writes to a
// temporary file in the target directory and renames it into place, so a
// failed run never leaves a half-written report. Every failure is returned
// as an output error.
//
// Usage:
//
//	w := storage.NewWriter(cfg.Report.Output)
//	path, err := w.Write(r)
//	if err != nil {
//	    return err
//	}
//	if path != "" {
//	    fmt.Println(path)
//	}
package storage
