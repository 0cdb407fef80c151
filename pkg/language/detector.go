package language

import (
	"errors"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Unknown is written to reports when no language could be detected
const Unknown = "unknown"

// ErrUnknownLanguage is returned when a sample has no recognisable language
var ErrUnknownLanguage = errors.New("language could not be detected")

// Detector detects the language of a text sample
type Detector interface {
	// Detect returns an ISO 639 code for sample or ErrUnknownLanguage
	Detect(sample string) (string, error)
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(sample string) (string, error)

func (f DetectorFunc) Detect(sample string) (string, error) { return f(sample) }

// Whatlang detects languages with whatlanggo's trigram model
type Whatlang struct {
	// MinConfidence rejects results below this confidence (0..1)
	MinConfidence float64
	// Whitelist restricts detection to these languages when non-empty
	Whitelist []whatlanggo.Lang
}

// NewWhatlang creates a detector with no confidence floor
func NewWhatlang() *Whatlang {
	return &Whatlang{}
}

// Detect returns the ISO 639-1 code of the sample's language, or the ISO
// 639-3 code for languages that have no two-letter code.
func (w *Whatlang) Detect(sample string) (string, error) {
	if !hasLetters(sample) {
		return "", ErrUnknownLanguage
	}

	var info whatlanggo.Info
	if len(w.Whitelist) > 0 {
		allowed := make(map[whatlanggo.Lang]bool, len(w.Whitelist))
		for _, l := range w.Whitelist {
			allowed[l] = true
		}
		info = whatlanggo.DetectWithOptions(sample, whatlanggo.Options{Whitelist: allowed})
	} else {
		info = whatlanggo.Detect(sample)
	}

	if info.Script == nil || info.Lang < 0 {
		return "", ErrUnknownLanguage
	}
	if w.MinConfidence > 0 && info.Confidence < w.MinConfidence {
		return "", ErrUnknownLanguage
	}

	if code := info.Lang.Iso6391(); code != "" {
		return code, nil
	}
	if code := info.Lang.Iso6393(); code != "" {
		return code, nil
	}
	return "", ErrUnknownLanguage
}

// Sample joins texts into one detection sample, skipping blanks and the
// placeholders Reddit leaves behind for removed content.
func Sample(texts ...string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		switch t {
		case "", "[deleted]", "[removed]":
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
