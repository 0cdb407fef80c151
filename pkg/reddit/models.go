package reddit

import "time"

// Thing kinds
const (
	KindComment = "t1"
	KindAccount = "t2"
	KindLink    = "t3"
	KindListing = "Listing"
)

// Thing wraps a single Reddit object
type Thing[T any] struct {
	Kind string `json:"kind"`
	Data T      `json:"data"`
}

// Listing is one page of a Reddit listing
type Listing[T any] Thing[ListingData[T]]

// ListingData holds the children and the cursor of a page
type ListingData[T any] struct {
	After    string     `json:"after"`
	Before   string     `json:"before"`
	Children []Thing[T] `json:"children"`
}

// Account is the t2 object returned by /user/{name}/about
type Account struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int64   `json:"link_karma"`
	CommentKarma int64   `json:"comment_karma"`
	IsSuspended  bool    `json:"is_suspended"`
}

// Link is a t3 submission
type Link struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// Comment is a t1 comment
type Comment struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// Created returns the creation time of the account
func (a *Account) Created() time.Time {
	return epoch(a.CreatedUTC)
}

// Created returns the creation time of the submission
func (l *Link) Created() time.Time {
	return epoch(l.CreatedUTC)
}

// Created returns the creation time of the comment
func (c *Comment) Created() time.Time {
	return epoch(c.CreatedUTC)
}

func epoch(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
