// Package ratelimit keeps snooper within Reddit's API quota.
//
// Two limiters are provided and usually chained:
//
// Token Bucket:
//   - Refills continuously, capacity tokens per period
//   - Enforces the configured requests per minute on the client side
//
// Header Limiter:
//   - Fed from X-Ratelimit-Remaining and X-Ratelimit-Reset response headers
//   - Blocks until the server's reset window once the quota is used up
//
// Usage:
//
//	headers := ratelimit.NewHeaderLimiter()
//	limiter := ratelimit.Chain{ratelimit.PerMinute(60), headers}
//
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
//	resp, err := http.DefaultClient.Do(req)
//	headers.Update(resp.Header)
package ratelimit
