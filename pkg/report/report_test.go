package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "snooper/pkg/errors"
	"snooper/pkg/language"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)

func fixedDetector(code string) language.Detector {
	return language.DetectorFunc(func(string) (string, error) { return code, nil })
}

func failingDetector() language.Detector {
	return language.DetectorFunc(func(string) (string, error) { return "", language.ErrUnknownLanguage })
}

func newTestBuilder(d language.Detector) *Builder {
	return &Builder{Detector: d, Location: time.UTC, Now: func() time.Time { return fixedNow }}
}

func at(year int, month time.Month, day, hour, min int) int64 {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC).Unix()
}

func testAccount() Account {
	return Account{Name: "target", CreatedUTC: 1262304000, LinkKarma: 10, CommentKarma: 5}
}

func TestBuildExample(t *testing.T) {
	// 2024-01-01 is a Monday
	items := []Item{
		{Kind: KindPost, CreatedUTC: at(2024, 1, 1, 9, 15)},
		{Kind: KindComment, CreatedUTC: at(2024, 1, 1, 14, 42)},
		{Kind: KindComment, CreatedUTC: at(2024, 1, 2, 9, 3)},
	}

	r, err := newTestBuilder(fixedDetector("en")).Build(items, testAccount(), 1000, "sample")
	require.NoError(t, err)

	assert.Equal(t, 2, r.ByHour.Get("09:00"))
	assert.Equal(t, 1, r.ByHour.Get("14:00"))
	assert.Equal(t, 3, r.ByHour.Total())
	assert.Equal(t, 2, r.ByDay.Get("Monday"))
	assert.Equal(t, 1, r.ByDay.Get("Tuesday"))
	assert.Equal(t, 3, r.ByDay.Total())
	assert.Equal(t, 3, r.TotalDataCount)
	assert.Equal(t, "en", r.TopUseLanguage)

	for _, k := range HourKeys {
		if k != "09:00" && k != "14:00" {
			assert.Zero(t, r.ByHour.Get(k), k)
		}
	}
	for _, k := range DayKeys {
		if k != "Monday" && k != "Tuesday" {
			assert.Zero(t, r.ByDay.Get(k), k)
		}
	}
}

func TestBucketSumsMatchTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	zones := []*time.Location{time.UTC, time.FixedZone("JST", 9*3600), time.FixedZone("NST", -(3*3600 + 1800))}

	for run := 0; run < 50; run++ {
		items := make([]Item, rng.Intn(500))
		for i := range items {
			items[i] = Item{CreatedUTC: rng.Int63n(2_000_000_000)}
		}

		b := newTestBuilder(fixedDetector("en"))
		b.Location = zones[run%len(zones)]
		r, _ := b.Build(items, testAccount(), 1000, "")

		require.Equal(t, len(items), r.TotalDataCount)
		require.Equal(t, r.TotalDataCount, r.ByHour.Total())
		require.Equal(t, r.TotalDataCount, r.ByDay.Total())
		require.Equal(t, 24, r.ByHour.Len())
		require.Equal(t, 7, r.ByDay.Len())
	}
}

func TestTotalKarma(t *testing.T) {
	tests := []struct {
		name          string
		link, comment int64
		want          int64
	}{
		{"positive", 1200, 34, 1234},
		{"negative comment karma", 10, -100, -90},
		{"both negative", -5, -7, -12},
		{"zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := Account{Name: "x", LinkKarma: tt.link, CommentKarma: tt.comment}
			r, err := newTestBuilder(fixedDetector("en")).Build([]Item{{CreatedUTC: 0}}, acc, 10, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.TotalKarma)
			assert.Equal(t, r.LinkKarma+r.CommentKarma, r.TotalKarma)
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	detectorCalled := false
	d := language.DetectorFunc(func(sample string) (string, error) {
		detectorCalled = true
		return "", language.ErrUnknownLanguage
	})

	var r *Report
	var err error
	require.NotPanics(t, func() {
		r, err = newTestBuilder(d).Build(nil, testAccount(), 1000, "")
	})

	require.NotNil(t, r)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.True(t, IsEmptyDataset(err))
	assert.True(t, errs.Is(err, errs.ErrorTypeEmptyDataset))
	assert.True(t, detectorCalled)

	assert.Equal(t, language.Unknown, r.TopUseLanguage)
	assert.Equal(t, 0, r.TotalDataCount)
	assert.Equal(t, 0, r.ByHour.Total())
	assert.Equal(t, 0, r.ByDay.Total())
	assert.Equal(t, 24, r.ByHour.Len())
	assert.Equal(t, 7, r.ByDay.Len())
	assert.Equal(t, int64(15), r.TotalKarma)
}

func TestSameTimestamp(t *testing.T) {
	ts := at(2023, 7, 15, 23, 59) // Saturday
	items := make([]Item, 17)
	for i := range items {
		items[i] = Item{CreatedUTC: ts}
	}

	r, err := newTestBuilder(fixedDetector("en")).Build(items, testAccount(), 1000, "")
	require.NoError(t, err)

	for _, k := range HourKeys {
		want := 0
		if k == "23:00" {
			want = 17
		}
		assert.Equal(t, want, r.ByHour.Get(k), k)
	}
	for _, k := range DayKeys {
		want := 0
		if k == "Saturday" {
			want = 17
		}
		assert.Equal(t, want, r.ByDay.Get(k), k)
	}
}

func TestOrderIndependent(t *testing.T) {
	items := []Item{
		{CreatedUTC: at(2024, 3, 4, 1, 0)},
		{CreatedUTC: at(2024, 3, 5, 13, 0)},
		{CreatedUTC: at(2024, 3, 10, 22, 0)},
		{CreatedUTC: at(2024, 3, 10, 22, 30)},
	}
	reversed := []Item{items[3], items[2], items[1], items[0]}

	b := newTestBuilder(fixedDetector("en"))
	r1, _ := b.Build(items, testAccount(), 100, "")
	r2, _ := b.Build(reversed, testAccount(), 100, "")

	assert.True(t, r1.ByHour.Equal(r2.ByHour))
	assert.True(t, r1.ByDay.Equal(r2.ByDay))
}

func TestLocalTimeBucketing(t *testing.T) {
	// Sunday 2024-01-07 20:00 UTC is Monday 05:00 in Tokyo
	items := []Item{{CreatedUTC: at(2024, 1, 7, 20, 0)}}

	b := newTestBuilder(fixedDetector("en"))
	b.Location = time.FixedZone("JST", 9*3600)
	r, err := b.Build(items, testAccount(), 10, "")
	require.NoError(t, err)

	assert.Equal(t, 1, r.ByHour.Get("05:00"))
	assert.Equal(t, 1, r.ByDay.Get("Monday"))
	assert.Equal(t, 0, r.ByDay.Get("Sunday"))
}

func TestLanguageFailureMarker(t *testing.T) {
	items := []Item{{CreatedUTC: 1}}

	tests := []struct {
		name string
		d    language.Detector
	}{
		{"detector error", failingDetector()},
		{"empty code", fixedDetector("")},
		{"no detector", nil},
		{"panicking detector", language.DetectorFunc(func(string) (string, error) { panic("boom") })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newTestBuilder(tt.d).Build(items, testAccount(), 10, "x")
			require.NoError(t, err)
			assert.Equal(t, language.Unknown, r.TopUseLanguage)
		})
	}
}

func TestTimestampsFormatting(t *testing.T) {
	r, err := newTestBuilder(fixedDetector("en")).Build([]Item{{CreatedUTC: 1}}, testAccount(), 250, "")
	require.NoError(t, err)

	assert.Equal(t, "2010-01-01T00:00:00+00:00", r.AccountCreated)
	assert.Equal(t, "2024-05-06T07:08:09.123456+00:00", r.Metadata.CreatedAt)
	assert.Equal(t, "target", r.Metadata.TargetScreenName)
	assert.Equal(t, 250, r.Metadata.Limit)
}

func TestAccountCreatedIsUTCRegardlessOfLocation(t *testing.T) {
	b := newTestBuilder(fixedDetector("en"))
	b.Location = time.FixedZone("PST", -8*3600)

	r, _ := b.Build(nil, testAccount(), 10, "")
	assert.Equal(t, "2010-01-01T00:00:00+00:00", r.AccountCreated)
}

func TestEncodeRoundTrip(t *testing.T) {
	items := []Item{
		{CreatedUTC: at(2024, 1, 1, 9, 15)},
		{CreatedUTC: at(2024, 1, 1, 14, 42)},
		{CreatedUTC: at(2024, 1, 2, 9, 3)},
	}
	acc := testAccount()
	acc.Name = "ユーザー<&>"
	r, err := newTestBuilder(fixedDetector("ja")).Build(items, acc, 1000, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r))

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, r, decoded)
	assert.True(t, r.ByHour.Equal(decoded.ByHour))
	assert.True(t, r.ByDay.Equal(decoded.ByDay))
}

func TestEncodeFormat(t *testing.T) {
	acc := testAccount()
	acc.Name = "ユーザー<&>"
	r, err := newTestBuilder(fixedDetector("ja")).Build([]Item{{CreatedUTC: at(2024, 1, 1, 0, 0)}}, acc, 1000, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r))
	out := buf.String()

	assert.Contains(t, out, `"target_screen_name": "ユーザー<&>"`)
	assert.NotContains(t, out, `\u`)
	assert.True(t, strings.HasPrefix(out, "{\n    \"account_created\": "))
	assert.Contains(t, out, "\n        \"00:00\": 1,\n        \"01:00\": 0,")

	keys := []string{
		`"account_created"`, `"link_karma"`, `"comment_karma"`, `"total_karma"`,
		`"top_use_language"`, `"analyze_result_by_hour"`, `"analyze_result_by_day"`,
		`"total_data_count"`, `"metadata"`, `"target_screen_name"`, `"created_at"`, `"limit"`,
	}
	last := -1
	for _, k := range keys {
		i := strings.Index(out, k)
		require.NotEqual(t, -1, i, k)
		assert.Greater(t, i, last, "key %s out of order", k)
		last = i
	}

	assert.Less(t, strings.Index(out, `"Monday"`), strings.Index(out, `"Sunday"`))
	assert.Less(t, strings.Index(out, `"09:00"`), strings.Index(out, `"10:00"`))
}

func TestEncodeEmptyReport(t *testing.T) {
	r, err := newTestBuilder(failingDetector()).Build(nil, testAccount(), 1000, "")
	require.True(t, IsEmptyDataset(err))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "unknown", raw["top_use_language"])
	assert.Len(t, raw["analyze_result_by_hour"], 24)
	assert.Len(t, raw["analyze_result_by_day"], 7)
}

func TestHistogram(t *testing.T) {
	h := NewDayHistogram()
	assert.True(t, h.Inc("Friday"))
	assert.True(t, h.Inc("Friday"))
	assert.False(t, h.Inc("Funday"))
	assert.Equal(t, 2, h.Get("Friday"))
	assert.Equal(t, 0, h.Get("Funday"))
	assert.Equal(t, 2, h.Total())
	assert.Equal(t, 2, h.Max())
	assert.Equal(t, DayKeys[:], h.Keys())

	keys := h.Keys()
	keys[0] = "changed"
	assert.Equal(t, "Monday", h.Keys()[0])

	fresh := NewDayHistogram()
	assert.Equal(t, 0, fresh.Get("Friday"), "skeletons must not be shared between histograms")
}

func TestHistogramUnmarshalErrors(t *testing.T) {
	var h Histogram
	assert.Error(t, json.Unmarshal([]byte(`{"Monday": 1}`), &h))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &h))
}

func TestDecodeChecksEachHistogramAgainstItsBuckets(t *testing.T) {
	r, err := newTestBuilder(fixedDetector("en")).Build([]Item{{CreatedUTC: at(2024, 1, 1, 9, 0)}}, testAccount(), 1000, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	raw["analyze_result_by_hour"], raw["analyze_result_by_day"] = raw["analyze_result_by_day"], raw["analyze_result_by_hour"]
	swapped, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = Decode(bytes.NewReader(swapped))
	assert.ErrorContains(t, err, "unexpected histogram key")
}

func TestDecodeZeroReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Report{}))

	r, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, HourKeys[:], r.ByHour.Keys())
	assert.Equal(t, DayKeys[:], r.ByDay.Keys())
	assert.Zero(t, r.ByHour.Total())
	assert.Zero(t, r.ByDay.Total())
}

func TestDecodePartialHistogram(t *testing.T) {
	r, err := Decode(strings.NewReader(`{"analyze_result_by_day": {"Friday": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, r.ByDay.Get("Friday"))
	assert.Equal(t, 3, r.ByDay.Total())
	assert.Equal(t, 24, r.ByHour.Len())
}

func TestDayKey(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) // Monday
	for i, want := range DayKeys {
		assert.Equal(t, want, DayKey(start.AddDate(0, 0, i)))
	}
	assert.Equal(t, "12:00", HourKey(start))
}

func TestErrEmptyDatasetIsTyped(t *testing.T) {
	var e *errs.Error
	require.True(t, errors.As(error(ErrEmptyDataset), &e))
	assert.Equal(t, errs.ErrorTypeEmptyDataset, e.Type)
}
