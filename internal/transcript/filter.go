package transcript

import (
	"strings"
	"unicode"
)

// FilterConfig contains the noise filter heuristics. All values are tunable.
type FilterConfig struct {
	// MinLength is the minimum trimmed text length in runes.
	MinLength int

	// MinConfidence rejects outcomes the engine itself was unsure about.
	MinConfidence float64

	// DenyPatterns are case-insensitive substrings that mark non-speech
	// output: bracketed annotations and musical notation glyphs.
	DenyPatterns []string

	// FillerWords are interjections rejected when they make up the whole
	// text. Matched per word, not per substring.
	FillerWords []string

	// RepetitionMinWords is the word count at which the repetition guard
	// starts applying.
	RepetitionMinWords int

	// RepetitionNum/RepetitionDen reject text where more than Num/Den of
	// all words equal the first word.
	RepetitionNum int
	RepetitionDen int
}

// DefaultFilterConfig returns the guards tuned against common recognition
// hallucinations on silence and background noise.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinLength:     2,
		MinConfidence: 0.1,
		DenyPatterns: []string{
			"[", "]", "(", ")", "♪", "♫", "♬", "♭", "♯",
		},
		FillerWords: []string{
			"uh", "um", "hmm", "hm", "mm", "mhm", "ah", "huh", "eh",
		},
		RepetitionMinWords: 3,
		RepetitionNum:      3,
		RepetitionDen:      4,
	}
}

// Filter decides whether a raw transcription outcome is worth keeping.
// It is stateless: the same text and confidence always yield the same
// decision.
type Filter struct {
	config  FilterConfig
	fillers map[string]bool
}

// NewFilter creates a filter with the given heuristics.
func NewFilter(config FilterConfig) *Filter {
	fillers := make(map[string]bool, len(config.FillerWords))
	for _, w := range config.FillerWords {
		fillers[strings.ToLower(w)] = true
	}
	return &Filter{config: config, fillers: fillers}
}

// Evaluate returns whether the text is accepted, and a short reason when
// it is not.
func (f *Filter) Evaluate(text string, confidence float64) (bool, string) {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return false, "empty"
	}

	if confidence < f.config.MinConfidence {
		return false, "low_confidence"
	}

	if len([]rune(trimmed)) < f.config.MinLength {
		return false, "too_short"
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range f.config.DenyPatterns {
		if strings.Contains(lower, pattern) {
			return false, "deny_pattern"
		}
	}

	if isPunctuationRun(trimmed) {
		return false, "punctuation_run"
	}

	words := strings.Fields(lower)

	if f.allFillers(words) {
		return false, "filler"
	}

	if len(words) >= f.config.RepetitionMinWords {
		first := words[0]
		repetitions := 0
		for _, w := range words {
			if w == first {
				repetitions++
			}
		}
		if repetitions > len(words)*f.config.RepetitionNum/f.config.RepetitionDen {
			return false, "repetition"
		}
	}

	return true, ""
}

// allFillers reports whether every word is a known filler interjection,
// ignoring trailing punctuation on each word.
func (f *Filter) allFillers(words []string) bool {
	if len(f.fillers) == 0 {
		return false
	}
	for _, w := range words {
		w = strings.TrimFunc(w, unicode.IsPunct)
		if w == "" {
			continue
		}
		if !f.fillers[w] {
			return false
		}
	}
	return true
}

// isPunctuationRun reports whether the text contains no letters or digits.
func isPunctuationRun(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
