// Package retry provides exponential backoff and retry logic for transient
// Reddit API failures.
//
// Typed errors from pkg/errors decide what is retried: network, rate limit and
// server errors are; auth, not found and parsing errors are returned at once.
// Context cancellation always stops the loop.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
//		return client.get(ctx, path, &out)
//	})
//
// When ByType is set, the wait after a failure depends on the error type, so
// rate limit errors back off longer than network blips.
package retry
