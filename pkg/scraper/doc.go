// Package scraper turns a Reddit screen name into an activity report.
//
// Run logs in, fetches the account summary, then fetches the newest posts,
// the newest comments and the top comments concurrently. Posts and comments
// become report items; the top comments become the language sample, falling
// back to the newest texts when the account has no top comments.
//
// Usage:
//
//	client := reddit.NewClient(cfg, log)
//	builder := report.NewBuilder(language.NewWhatlang(), loc)
//	s := scraper.New(client, builder, cfg.Report)
//
//	r, err := s.Run(ctx, "spez")
//	if err != nil && !report.IsEmptyDataset(err) {
//	    return err
//	}
//
// Any error other than the empty dataset condition means no report was
// produced.
package scraper
