package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// HourKeys are the hour buckets in output order
var HourKeys = [24]string{
	"00:00", "01:00", "02:00", "03:00", "04:00", "05:00",
	"06:00", "07:00", "08:00", "09:00", "10:00", "11:00",
	"12:00", "13:00", "14:00", "15:00", "16:00", "17:00",
	"18:00", "19:00", "20:00", "21:00", "22:00", "23:00",
}

// DayKeys are the weekday buckets in output order, Monday first
var DayKeys = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Histogram counts items over a fixed, ordered set of keys. It marshals as a
// JSON object whose keys keep that order.
type Histogram struct {
	keys   []string
	index  map[string]int
	counts []int
}

func newHistogram(keys []string) Histogram {
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	return Histogram{keys: keys, index: index, counts: make([]int, len(keys))}
}

// NewHourHistogram returns a zeroed 24-bucket histogram
func NewHourHistogram() Histogram {
	return newHistogram(HourKeys[:])
}

// NewDayHistogram returns a zeroed 7-bucket histogram
func NewDayHistogram() Histogram {
	return newHistogram(DayKeys[:])
}

// HourKey returns the bucket of t's hour
func HourKey(t time.Time) string {
	return HourKeys[t.Hour()]
}

// DayKey returns the bucket of t's weekday
func DayKey(t time.Time) string {
	// time.Weekday starts at Sunday
	return DayKeys[(int(t.Weekday())+6)%7]
}

// Inc adds one to key. Unknown keys are ignored and reported as false.
func (h *Histogram) Inc(key string) bool {
	i, ok := h.index[key]
	if !ok {
		return false
	}
	h.counts[i]++
	return true
}

// Get returns the count of key
func (h Histogram) Get(key string) int {
	if i, ok := h.index[key]; ok {
		return h.counts[i]
	}
	return 0
}

// Total returns the sum of all buckets
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.counts {
		total += c
	}
	return total
}

// Keys returns the bucket keys in order
func (h Histogram) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len returns the number of buckets
func (h Histogram) Len() int {
	return len(h.keys)
}

// Max returns the largest bucket count
func (h Histogram) Max() int {
	m := 0
	for _, c := range h.counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Equal reports whether both histograms have the same keys and counts
func (h Histogram) Equal(o Histogram) bool {
	if len(h.keys) != len(o.keys) {
		return false
	}
	for i, k := range h.keys {
		if o.keys[i] != k || o.counts[i] != h.counts[i] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the buckets as an object in key order
func (h Histogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", h.counts[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the buckets back. A histogram that already has its
// keys only accepts those; a zero Histogram picks hours or weekdays from the
// keys present.
func (h *Histogram) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case h.keys != nil:
		*h = newHistogram(h.keys)
	case hasAllKeys(raw, HourKeys[:]):
		*h = NewHourHistogram()
	case hasAllKeys(raw, DayKeys[:]):
		*h = NewDayHistogram()
	default:
		return fmt.Errorf("histogram keys match neither hours nor weekdays")
	}

	for k, v := range raw {
		i, ok := h.index[k]
		if !ok {
			return fmt.Errorf("unexpected histogram key %q", k)
		}
		h.counts[i] = v
	}
	return nil
}

func hasAllKeys(raw map[string]int, keys []string) bool {
	if len(raw) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			return false
		}
	}
	return true
}
