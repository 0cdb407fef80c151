// Package reddittest provides an in-process fake of the Reddit OAuth token
// endpoint and the user listings, for tests.
package reddittest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Credentials accepted by a fresh Server
const (
	Username     = "snoo"
	Password     = "hunter2"
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	AccessToken  = "test-access-token"
)

// User is an account served by the fake
type User struct {
	Name         string
	CreatedUTC   float64
	LinkKarma    int64
	CommentKarma int64
	Suspended    bool
	Posts        []Post
	Comments     []Comment
}

// Post is a submission of a User
type Post struct {
	ID         string
	Title      string
	Selftext   string
	Subreddit  string
	Score      int
	CreatedUTC float64
}

// Comment is a comment of a User
type Comment struct {
	ID         string
	Body       string
	Subreddit  string
	Score      int
	CreatedUTC float64
}

// Server simulates the Reddit API
type Server struct {
	*httptest.Server

	mu         sync.RWMutex
	users      map[string]*User
	failures   []int
	remaining  string
	reset      string
	userAgents map[string]bool
	requests   []string

	tokenRequests int32
	apiRequests   int32
}

// NewServer starts a fake Reddit. Use URL as both the auth and the API base.
func NewServer() *Server {
	s := &Server{
		users:      make(map[string]*User),
		userAgents: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/access_token", s.handleToken)
	mux.HandleFunc("GET /user/{name}/about", s.authorized(s.handleAbout))
	mux.HandleFunc("GET /user/{name}/submitted", s.authorized(s.handleSubmitted))
	mux.HandleFunc("GET /user/{name}/comments", s.authorized(s.handleComments))

	s.Server = httptest.NewServer(mux)
	return s
}

// AddUser registers or replaces a user
func (s *Server) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(u.Name)] = u
}

// FailNext makes the next API requests (not token requests) answer with the
// given statuses, one per request.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// SetRateLimit makes every API response carry X-Ratelimit headers
func (s *Server) SetRateLimit(remaining, resetSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = strconv.Itoa(remaining) + ".0"
	s.reset = strconv.Itoa(resetSeconds)
}

// TokenRequests returns the number of token grants attempted
func (s *Server) TokenRequests() int {
	return int(atomic.LoadInt32(&s.tokenRequests))
}

// APIRequests returns the number of API requests received
func (s *Server) APIRequests() int {
	return int(atomic.LoadInt32(&s.apiRequests))
}

// Requests returns the request URIs received by the API handlers
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...)
}

// SawUserAgent reports whether any request carried ua
func (s *Server) SawUserAgent(ua string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userAgents[ua]
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.tokenRequests, 1)
	s.recordUserAgent(r)

	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Unauthorized", "error": 401})
		return
	}

	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	// Reddit reports wrong user credentials with a 200
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		writeJSON(w, http.StatusOK, map[string]string{"error": "invalid_grant"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": AccessToken,
		"token_type":   "bearer",
		"expires_in":   3600,
		"scope":        "*",
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.apiRequests, 1)
		s.recordUserAgent(r)

		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		remaining, reset := s.remaining, s.reset
		s.mu.Unlock()

		if remaining != "" {
			w.Header().Set("X-Ratelimit-Remaining", remaining)
			w.Header().Set("X-Ratelimit-Reset", reset)
			w.Header().Set("X-Ratelimit-Used", "1")
		}

		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Unauthorized", "error": 401})
			return
		}

		if status != 0 {
			writeJSON(w, status, map[string]interface{}{"message": http.StatusText(status), "error": status})
			return
		}

		next(w, r)
	}
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Not Found", "error": 404})
		return
	}

	if u.Suspended {
		writeJSON(w, http.StatusOK, thing("t2", map[string]interface{}{"name": u.Name, "is_suspended": true}))
		return
	}

	writeJSON(w, http.StatusOK, thing("t2", map[string]interface{}{
		"name":          u.Name,
		"created_utc":   u.CreatedUTC,
		"link_karma":    u.LinkKarma,
		"comment_karma": u.CommentKarma,
		"is_suspended":  false,
	}))
}

func (s *Server) handleSubmitted(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Not Found", "error": 404})
		return
	}

	posts := append([]Post(nil), u.Posts...)
	sortBy(r, posts, func(p Post) (float64, int) { return p.CreatedUTC, p.Score })

	children := make([]map[string]interface{}, len(posts))
	for i, p := range posts {
		children[i] = thing("t3", map[string]interface{}{
			"id":          p.ID,
			"name":        "t3_" + p.ID,
			"title":       p.Title,
			"selftext":    p.Selftext,
			"subreddit":   p.Subreddit,
			"score":       p.Score,
			"created_utc": p.CreatedUTC,
		})
	}
	writeJSON(w, http.StatusOK, page(r, children))
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Not Found", "error": 404})
		return
	}

	comments := append([]Comment(nil), u.Comments...)
	sortBy(r, comments, func(c Comment) (float64, int) { return c.CreatedUTC, c.Score })

	children := make([]map[string]interface{}, len(comments))
	for i, c := range comments {
		children[i] = thing("t1", map[string]interface{}{
			"id":          c.ID,
			"name":        "t1_" + c.ID,
			"body":        c.Body,
			"subreddit":   c.Subreddit,
			"score":       c.Score,
			"created_utc": c.CreatedUTC,
		})
	}
	writeJSON(w, http.StatusOK, page(r, children))
}

func (s *Server) lookup(name string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(name)]
	return u, ok
}

func (s *Server) recordUserAgent(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userAgents[r.Header.Get("User-Agent")] = true
}

// sortBy orders items like Reddit does: newest first for sort=new, highest
// score first for sort=top.
func sortBy[T any](r *http.Request, items []T, key func(T) (created float64, score int)) {
	top := r.URL.Query().Get("sort") == "top"
	sort.SliceStable(items, func(i, j int) bool {
		ci, si := key(items[i])
		cj, sj := key(items[j])
		if top && si != sj {
			return si > sj
		}
		return ci > cj
	})
}

// page cuts one listing page out of children using the limit and after params
func page(r *http.Request, children []map[string]interface{}) map[string]interface{} {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	start := 0
	if after := q.Get("after"); after != "" {
		for i, c := range children {
			if c["data"].(map[string]interface{})["name"] == after {
				start = i + 1
				break
			}
		}
	}
	if start > len(children) {
		start = len(children)
	}

	end := start + limit
	if end > len(children) {
		end = len(children)
	}
	slice := children[start:end]

	var next interface{}
	if end < len(children) && len(slice) > 0 {
		next = slice[len(slice)-1]["data"].(map[string]interface{})["name"]
	}

	return thing("Listing", map[string]interface{}{
		"after":    next,
		"before":   nil,
		"dist":     len(slice),
		"children": slice,
	})
}

func thing(kind string, data interface{}) map[string]interface{} {
	return map[string]interface{}{"kind": kind, "data": data}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("reddittest: encode response: %v", err))
	}
}
