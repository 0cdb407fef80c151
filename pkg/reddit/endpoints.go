package reddit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// TokenEndpoint is the password grant endpoint, relative to the auth URL
	TokenEndpoint = "/api/v1/access_token"

	// MaxPageSize is the largest page a Reddit listing returns
	MaxPageSize = 100

	SortNew = "new"
	SortTop = "top"

	// TimeAll is the listing time filter used with SortTop
	TimeAll = "all"
)

// AboutPath returns the account endpoint for name
func AboutPath(name string) string {
	return fmt.Sprintf("/user/%s/about", url.PathEscape(name))
}

// SubmittedPath returns the submissions listing endpoint for name
func SubmittedPath(name string) string {
	return fmt.Sprintf("/user/%s/submitted", url.PathEscape(name))
}

// CommentsPath returns the comments listing endpoint for name
func CommentsPath(name string) string {
	return fmt.Sprintf("/user/%s/comments", url.PathEscape(name))
}

// ListingParams builds the query for one listing page. pageSize is clamped to
// 1..MaxPageSize and raw_json=1 keeps Reddit from HTML-escaping text.
func ListingParams(sort, timeFilter string, pageSize int, after string) url.Values {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	params := url.Values{}
	params.Set("raw_json", "1")
	params.Set("limit", strconv.Itoa(pageSize))
	if sort != "" {
		params.Set("sort", sort)
	}
	if timeFilter != "" {
		params.Set("t", timeFilter)
	}
	if after != "" {
		params.Set("after", after)
	}
	return params
}

// TokenURL joins the auth base URL and the token endpoint
func TokenURL(authURL string) string {
	return strings.TrimRight(authURL, "/") + TokenEndpoint
}

// IsValidUsername checks a name against Reddit's rules: 3 to 20 characters
// of letters, digits, underscores and hyphens.
func IsValidUsername(name string) bool {
	if len(name) < 3 || len(name) > 20 {
		return false
	}

	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips the decorations users tend to paste: "u/", "/u/",
// "@", a profile URL prefix and trailing slashes or spaces.
func SanitizeUsername(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"https://www.reddit.com", "https://reddit.com", "https://old.reddit.com"} {
		name = strings.TrimPrefix(name, prefix)
	}
	name = strings.TrimPrefix(name, "/")
	for _, prefix := range []string{"user/", "u/", "@"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimRight(name, "/ ")
}
