package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	errs "snooper/pkg/errors"
	"snooper/pkg/language"
)

const (
	// AccountCreatedLayout renders account_created, always in UTC
	AccountCreatedLayout = "2006-01-02T15:04:05+00:00"
	// GeneratedAtLayout renders metadata.created_at
	GeneratedAtLayout = "2006-01-02T15:04:05.000000-07:00"
)

// ErrEmptyDataset is returned with a zero report when no items were fetched
var ErrEmptyDataset = &errs.Error{Type: errs.ErrorTypeEmptyDataset, Message: "no posts or comments found"}

// Kind of content item
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Item is one post or comment
type Item struct {
	Kind       Kind
	ID         string
	CreatedUTC int64
	Text       string
	Score      int
}

// Account is the summary of the target account
type Account struct {
	Name         string
	CreatedUTC   int64
	LinkKarma    int64
	CommentKarma int64
}

// Report is the JSON document written for one target
type Report struct {
	AccountCreated string    `json:"account_created"`
	LinkKarma      int64     `json:"link_karma"`
	CommentKarma   int64     `json:"comment_karma"`
	TotalKarma     int64     `json:"total_karma"`
	TopUseLanguage string    `json:"top_use_language"`
	ByHour         Histogram `json:"analyze_result_by_hour"`
	ByDay          Histogram `json:"analyze_result_by_day"`
	TotalDataCount int       `json:"total_data_count"`
	Metadata       Metadata  `json:"metadata"`
}

// Metadata describes the run that produced a report
type Metadata struct {
	TargetScreenName string `json:"target_screen_name"`
	CreatedAt        string `json:"created_at"`
	Limit            int    `json:"limit"`
}

// Builder aggregates items into a Report
type Builder struct {
	Detector language.Detector
	// Location is the zone items are bucketed in; nil means time.Local
	Location *time.Location
	// Now returns the generation time; nil means time.Now
	Now func() time.Time
}

// NewBuilder creates a builder bucketing in loc
func NewBuilder(detector language.Detector, loc *time.Location) *Builder {
	return &Builder{Detector: detector, Location: loc}
}

// Build aggregates items into a report. The report is never nil. With no
// items it is zero filled, its language is language.Unknown and the error is
// ErrEmptyDataset.
func (b *Builder) Build(items []Item, account Account, limit int, sample string) (*Report, error) {
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	r := &Report{
		AccountCreated: time.Unix(account.CreatedUTC, 0).UTC().Format(AccountCreatedLayout),
		LinkKarma:      account.LinkKarma,
		CommentKarma:   account.CommentKarma,
		TotalKarma:     account.LinkKarma + account.CommentKarma,
		ByHour:         NewHourHistogram(),
		ByDay:          NewDayHistogram(),
		TotalDataCount: len(items),
		Metadata: Metadata{
			TargetScreenName: account.Name,
			CreatedAt:        now().UTC().Format(GeneratedAtLayout),
			Limit:            limit,
		},
	}

	for _, item := range items {
		t := time.Unix(item.CreatedUTC, 0).In(loc)
		r.ByHour.Inc(HourKey(t))
		r.ByDay.Inc(DayKey(t))
	}

	r.TopUseLanguage = b.detect(sample)

	if len(items) == 0 {
		return r, ErrEmptyDataset
	}
	return r, nil
}

// detect never fails; any detector error becomes language.Unknown
func (b *Builder) detect(sample string) (code string) {
	if b.Detector == nil {
		return language.Unknown
	}
	defer func() {
		if recover() != nil {
			code = language.Unknown
		}
	}()

	code, err := b.Detector.Detect(sample)
	if err != nil || code == "" {
		return language.Unknown
	}
	return code
}

// IsEmptyDataset reports whether err is the empty dataset condition
func IsEmptyDataset(err error) bool {
	return errors.Is(err, ErrEmptyDataset) || errs.Is(err, errs.ErrorTypeEmptyDataset)
}

// Encode writes r as 4-space indented JSON with non-ASCII and HTML
// characters left unescaped.
func Encode(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Decode reads a report written by Encode. Each histogram is checked against
// its own buckets; missing buckets stay zero.
func Decode(rd io.Reader) (*Report, error) {
	r := Report{ByHour: NewHourHistogram(), ByDay: NewDayHistogram()}
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
