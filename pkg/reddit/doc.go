// Package reddit is a small client for the parts of the Reddit OAuth API that
// snooper needs: the account summary and the submitted and comments listings
// of a user.
//
// Authentication uses the OAuth2 password grant of a Reddit "script" app.
// Requests go through a token bucket and, optionally, a limiter fed from
// Reddit's X-Ratelimit headers, and are retried on transient failures.
//
//	client := reddit.NewClient(cfg, log)
//	if err := client.Login(ctx); err != nil {
//		return err // auth error: bad credentials
//	}
//	account, err := client.FetchAccount(ctx, "spez")
//	posts, err := client.Submissions(ctx, "spez", 1000)
//
// Failures are *errors.Error values from snooper/pkg/errors.
package reddit
