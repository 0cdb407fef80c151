package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/logger"
	"snooper/pkg/ratelimit"
	"snooper/pkg/retry"
)

// Client talks to the Reddit OAuth API as a script app
type Client struct {
	cfg        config.RedditConfig
	httpClient *http.Client
	apiClient  *http.Client
	limiter    ratelimit.Limiter
	headers    *ratelimit.HeaderLimiter
	retry      *retry.Config
	logger     logger.Logger
	mu         sync.Mutex
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the transport used for both token and API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry replaces the retry policy
func WithRetry(rc *retry.Config) Option {
	return func(c *Client) { c.retry = rc }
}

// WithLimiter replaces the client-side limiter. Header tracking stays on
// when enabled in the config.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a Reddit client from the application config. Login must
// be called before any listing call.
func NewClient(cfg *config.Config, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		cfg:     cfg.Reddit,
		limiter: ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
		retry:   retry.FromConfig(cfg.Retry, log),
		logger:  log.WithField("component", "reddit"),
	}
	if cfg.RateLimit.RespectHeaders {
		c.headers = ratelimit.NewHeaderLimiter()
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Reddit.Timeout}
	}
	c.httpClient = withUserAgent(c.httpClient, c.cfg.UserAgent)

	if c.headers != nil {
		c.limiter = ratelimit.Chain{c.limiter, c.headers}
	}

	logger.LogComponentStart(c.logger, "reddit", map[string]interface{}{
		"api_url":             c.cfg.APIURL,
		"requests_per_minute": cfg.RateLimit.RequestsPerMinute,
		"max_attempts":        c.retry.MaxAttempts,
	})

	return c
}

// Login performs the OAuth2 password grant. Credential problems are returned
// as auth errors before any listing is requested.
func (c *Client) Login(ctx context.Context) error {
	oc := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  TokenURL(c.cfg.AuthURL),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	c.logger.DebugWithFields("requesting access token", map[string]interface{}{
		"username":  c.cfg.Username,
		"token_url": oc.Endpoint.TokenURL,
	})

	src := &passwordTokenSource{
		ctx:      context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient),
		config:   oc,
		username: c.cfg.Username,
		password: c.cfg.Password,
	}

	tok, err := retry.DoWithResult(ctx, c.retry, src.fetch)
	if err != nil {
		c.logger.WithError(err).Warn("authentication failed")
		return err
	}

	apiClient := oauth2.NewClient(src.ctx, oauth2.ReuseTokenSource(tok, src))
	apiClient.Timeout = c.httpClient.Timeout

	c.mu.Lock()
	c.apiClient = apiClient
	c.mu.Unlock()

	c.logger.InfoWithFields("authenticated with Reddit", map[string]interface{}{
		"username": c.cfg.Username,
		"expires":  tok.Expiry.Format(time.RFC3339),
	})
	return nil
}

// FetchAccount fetches the public account summary of name
func (c *Client) FetchAccount(ctx context.Context, name string) (*Account, error) {
	var thing Thing[Account]
	if err := c.GetJSON(ctx, AboutPath(name), url.Values{"raw_json": {"1"}}, &thing); err != nil {
		if errs.Is(err, errs.ErrorTypeNotFound) {
			return nil, errs.Wrap(errs.ErrorTypeNotFound, err, fmt.Sprintf("account %q does not exist", name))
		}
		return nil, err
	}

	if thing.Data.IsSuspended {
		return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("account %q is suspended", name), http.StatusOK)
	}
	if thing.Kind != KindAccount || thing.Data.Name == "" {
		return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("unexpected object kind %q for account %q", thing.Kind, name), http.StatusOK)
	}

	c.logger.DebugWithFields("fetched account", map[string]interface{}{
		"target":        name,
		"link_karma":    thing.Data.LinkKarma,
		"comment_karma": thing.Data.CommentKarma,
	})
	return &thing.Data, nil
}

// Submissions returns up to limit submissions of name, newest first
func (c *Client) Submissions(ctx context.Context, name string, limit int) ([]Link, error) {
	return paginate[Link](ctx, c, name, SubmittedPath(name), SortNew, "", limit)
}

// Comments returns up to limit comments of name, newest first
func (c *Client) Comments(ctx context.Context, name string, limit int) ([]Comment, error) {
	return paginate[Comment](ctx, c, name, CommentsPath(name), SortNew, "", limit)
}

// TopComments returns the n highest scored comments of name of all time
func (c *Client) TopComments(ctx context.Context, name string, n int) ([]Comment, error) {
	return paginate[Comment](ctx, c, name, CommentsPath(name), SortTop, TimeAll, n)
}

// paginate follows the after cursor until limit items are collected or the
// listing ends.
func paginate[T any](ctx context.Context, c *Client, target, path, sort, timeFilter string, limit int) ([]T, error) {
	if limit <= 0 {
		return nil, nil
	}

	items := make([]T, 0, min(limit, MaxPageSize))
	after := ""
	for len(items) < limit {
		var page Listing[T]
		params := ListingParams(sort, timeFilter, limit-len(items), after)
		if err := c.GetJSON(ctx, path, params, &page); err != nil {
			return nil, err
		}

		for _, child := range page.Data.Children {
			if len(items) == limit {
				break
			}
			items = append(items, child.Data)
		}

		logger.LogFetchProgress(c.logger, target, path, len(items), limit)

		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}
	return items, nil
}

// GetJSON performs a GET against the API with rate limiting and retries and
// decodes the response into target.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	c.mu.Lock()
	hc := c.apiClient
	c.mu.Unlock()
	if hc == nil {
		return errs.New(errs.ErrorTypeAuth, "not logged in", 0)
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.doRequest(hc, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if c.headers != nil {
			c.headers.Update(resp.Header)
			if resp.StatusCode == http.StatusTooManyRequests {
				logger.LogRateLimit(c.logger, path, c.headers.Delay())
			}
		}

		if err := c.checkResponseStatus(resp); err != nil {
			return err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
		}

		if err := json.Unmarshal(body, target); err != nil {
			bodyPreview := string(body)
			if len(bodyPreview) > 200 {
				bodyPreview = bodyPreview[:200] + "..."
			}
			c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
				"url":          endpoint,
				"status":       resp.StatusCode,
				"error":        err.Error(),
				"body_preview": bodyPreview,
			})
			return &errs.Error{
				Type:    errs.ErrorTypeParsing,
				Message: fmt.Sprintf("failed to parse JSON: %v", err),
				Code:    resp.StatusCode,
				Err:     err,
			}
		}
		return nil
	})
}

func (c *Client) doRequest(hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, classifyTransportError(err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps an HTTP status to a typed error. Only statuses
// errs.IsRetryableStatusCode accepts become retryable types.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, "access denied by Reddit", code)
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "resource not found", code)
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded", code)
	case errs.IsRetryableStatusCode(code):
		return errs.New(errs.ErrorTypeServerError, "server error", code)
	default:
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", code), code)
	}
}

// classifyTransportError separates token endpoint failures from plain
// network failures. Both may arrive wrapped in *url.Error.
func classifyTransportError(err error) error {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return typed
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return tokenError(re)
	}

	return errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
}

func tokenError(re *oauth2.RetrieveError) error {
	code := 0
	if re.Response != nil {
		code = re.Response.StatusCode
	}
	if code >= 500 || code == http.StatusTooManyRequests {
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "token endpoint unavailable", Code: code, Err: re}
	}

	reason := re.ErrorCode
	if reason == "" {
		reason = strings.TrimSpace(string(re.Body))
	}
	return &errs.Error{
		Type:    errs.ErrorTypeAuth,
		Message: fmt.Sprintf("authentication failed: %s", reason),
		Code:    code,
		Err:     re,
	}
}

// passwordTokenSource re-runs the password grant whenever the cached token
// expires; Reddit issues no refresh token for script apps.
type passwordTokenSource struct {
	ctx      context.Context
	config   *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.fetch(s.ctx)
}

func (s *passwordTokenSource) fetch(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.ctx.Value(oauth2.HTTPClient))

	tok, err := s.config.PasswordCredentialsToken(ctx, s.username, s.password)
	if err == nil {
		return tok, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return nil, tokenError(re)
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "token request failed")
	}

	// Reddit answers bad credentials with 200 and {"error": "invalid_grant"}
	return nil, errs.Wrap(errs.ErrorTypeAuth, err, "authentication failed")
}

// userAgentTransport stamps every request with the configured user agent
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

func withUserAgent(hc *http.Client, userAgent string) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &userAgentTransport{base: base, userAgent: userAgent}
	return &wrapped
}
