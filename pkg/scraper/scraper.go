package scraper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/language"
	"snooper/pkg/logger"
	"snooper/pkg/reddit"
	"snooper/pkg/report"
)

// API is the part of the Reddit client the scraper needs
type API interface {
	Login(ctx context.Context) error
	FetchAccount(ctx context.Context, name string) (*reddit.Account, error)
	Submissions(ctx context.Context, name string, limit int) ([]reddit.Link, error)
	Comments(ctx context.Context, name string, limit int) ([]reddit.Comment, error)
	TopComments(ctx context.Context, name string, n int) ([]reddit.Comment, error)
}

// Stage names reported through the status callback
const (
	StageLogin   = "login"
	StageAccount = "account"
	StageContent = "content"
	StageBuild   = "build"
)

// StatusFunc receives a short progress note for each stage
type StatusFunc func(stage, detail string)

// Scraper fetches a target's activity and turns it into a report
type Scraper struct {
	api     API
	builder *report.Builder
	cfg     config.ReportConfig
	logger  logger.Logger
	status  StatusFunc
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithStatus sets the progress callback
func WithStatus(fn StatusFunc) Option {
	return func(s *Scraper) { s.status = fn }
}

// WithLogger replaces the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// New creates a Scraper
func New(api API, builder *report.Builder, cfg config.ReportConfig, opts ...Option) *Scraper {
	s := &Scraper{
		api:     api,
		builder: builder,
		cfg:     cfg,
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "scraper")
	return s
}

// Run logs in, fetches the target's account, posts, comments and top comments
// and builds the report. The report is non-nil whenever the error is nil or
// the empty dataset condition; any other error means no report was produced.
func (s *Scraper) Run(ctx context.Context, target string) (*report.Report, error) {
	name := reddit.SanitizeUsername(target)
	if !reddit.IsValidUsername(name) {
		return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("invalid Reddit username %q", target), 0)
	}

	log := s.logger.WithField("target", name)
	start := time.Now()

	s.notify(StageLogin, "authenticating with Reddit")
	if err := s.api.Login(ctx); err != nil {
		return nil, err
	}

	s.notify(StageAccount, "fetching u/"+name)
	acc, err := s.api.FetchAccount(ctx, name)
	if err != nil {
		log.WithError(err).Error("failed to fetch account")
		return nil, err
	}

	s.notify(StageContent, fmt.Sprintf("fetching up to %d posts and %d comments", s.cfg.Limit, s.cfg.Limit))
	var (
		posts    []reddit.Link
		comments []reddit.Comment
		top      []reddit.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.api.Submissions(gctx, name, s.cfg.Limit)
		return wrapFetch(err, "posts")
	})
	g.Go(func() error {
		var err error
		comments, err = s.api.Comments(gctx, name, s.cfg.Limit)
		return wrapFetch(err, "comments")
	})
	g.Go(func() error {
		var err error
		top, err = s.api.TopComments(gctx, name, s.sampleSize())
		return wrapFetch(err, "top comments")
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("failed to fetch content")
		return nil, err
	}

	items := toItems(posts, comments)
	sample := buildSample(top, items, s.sampleSize())

	log.InfoWithFields("content fetched", map[string]interface{}{
		"posts":        len(posts),
		"comments":     len(comments),
		"top_comments": len(top),
		"duration":     time.Since(start),
	})

	s.notify(StageBuild, fmt.Sprintf("analyzing %d items", len(items)))
	r, err := s.builder.Build(items, toAccount(acc, name), s.cfg.Limit, sample)
	if report.IsEmptyDataset(err) {
		log.Warn("no posts or comments found, writing an empty report")
	}
	return r, err
}

func (s *Scraper) sampleSize() int {
	if s.cfg.LanguageSample < 1 {
		return 1
	}
	return s.cfg.LanguageSample
}

func (s *Scraper) notify(stage, detail string) {
	s.logger.DebugWithFields(detail, map[string]interface{}{"stage": stage})
	if s.status != nil {
		s.status(stage, detail)
	}
}

func wrapFetch(err error, what string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

func toAccount(acc *reddit.Account, fallback string) report.Account {
	name := acc.Name
	if name == "" {
		name = fallback
	}
	return report.Account{
		Name:         name,
		CreatedUTC:   int64(acc.CreatedUTC),
		LinkKarma:    acc.LinkKarma,
		CommentKarma: acc.CommentKarma,
	}
}

// toItems concatenates posts then comments
func toItems(posts []reddit.Link, comments []reddit.Comment) []report.Item {
	items := make([]report.Item, 0, len(posts)+len(comments))
	for _, p := range posts {
		text := p.Title
		if p.Selftext != "" {
			text += "\n" + p.Selftext
		}
		items = append(items, report.Item{
			Kind:       report.KindPost,
			ID:         p.ID,
			CreatedUTC: int64(p.CreatedUTC),
			Text:       text,
			Score:      p.Score,
		})
	}
	for _, c := range comments {
		items = append(items, report.Item{
			Kind:       report.KindComment,
			ID:         c.ID,
			CreatedUTC: int64(c.CreatedUTC),
			Text:       c.Body,
			Score:      c.Score,
		})
	}
	return items
}

// buildSample prefers the top comments; accounts without any fall back to
// their newest texts.
func buildSample(top []reddit.Comment, items []report.Item, n int) string {
	texts := make([]string, 0, n)
	for _, c := range top {
		if len(texts) == n {
			break
		}
		texts = append(texts, c.Body)
	}
	if sample := language.Sample(texts...); sample != "" {
		return sample
	}

	newest := append([]report.Item(nil), items...)
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].CreatedUTC > newest[j].CreatedUTC
	})
	texts = texts[:0]
	for _, it := range newest {
		if len(texts) == n {
			break
		}
		texts = append(texts, it.Text)
	}
	return language.Sample(texts...)
}
