// Package satisfaction estimates caller satisfaction from call text.
//
// The score is a keyword heuristic on a 0-100 scale starting at a neutral 50.
// Each positive keyword occurrence adds 5 and each negative one subtracts 8.
// Keywords are plain substrings, so overlapping terms ("perfect" inside
// "perfect solution") count more than once.
package satisfaction

import (
	"math"
	"regexp"
	"strings"
)

const (
	Neutral = 50

	positiveWeight = 5
	negativeWeight = 8

	surveyExcellent = 20
	surveyGood      = 10
	surveyBad       = -30

	transferPenalty = -15
	resolvedBonus   = 10
)

var positiveKeywords = []string{
	"thank you", "thanks", "appreciate", "great", "excellent", "perfect",
	"wonderful", "amazing", "helpful", "satisfied", "happy", "pleased",
	"love it", "exactly what", "perfect solution", "very good", "good job",
	"exactly", "yes please", "that works", "sounds good", "perfect",
	"resolved", "solved", "fixed", "understood", "clear", "makes sense",
}

var negativeKeywords = []string{
	"frustrated", "angry", "upset", "disappointed", "terrible", "awful",
	"horrible", "useless", "waste of time", "not helpful", "confused",
	"doesn't work", "broken", "wrong", "incorrect", "no idea", "unclear",
	"complicated", "difficult", "problem", "issue", "error", "failed",
	"can't", "cannot", "won't work", "not working", "bad", "poor",
}

var (
	positivePatterns = compileKeywords(positiveKeywords)
	negativePatterns = compileKeywords(negativeKeywords)

	surveyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:rate|rating|satisfaction|satisfied|happy).*?(?:1|2|3|4|5|one|two|three|four|five|excellent|good|bad|poor)`),
		regexp.MustCompile(`(?i)(?:how.*?service|how.*?help|how.*?experience)`),
	}
)

func compileKeywords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))
	}
	return out
}

func countAll(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// KeywordCounts reports positive and negative keyword occurrences.
func KeywordCounts(text string) (positive, negative int) {
	text = strings.ToLower(text)
	return countAll(positivePatterns, text), countAll(negativePatterns, text)
}

// Score returns an integer in [0,100]. Blank text scores Neutral.
func Score(text, endedReason string) int {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Neutral
	}

	score := float64(Neutral)
	score += float64(positiveWeight * countAll(positivePatterns, text))
	score -= float64(negativeWeight * countAll(negativePatterns, text))

	// Each survey pattern that matches applies the answer adjustment once.
	for _, re := range surveyPatterns {
		if re.MatchString(text) {
			score += float64(surveyAdjustment(text))
		}
	}

	reason := strings.ToLower(endedReason)
	if strings.Contains(reason, "transfer") || strings.Contains(reason, "forward") {
		score += transferPenalty
	}
	if containsAny(text, "resolved", "solved", "fixed") {
		score += resolvedBonus
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func surveyAdjustment(text string) int {
	switch {
	case containsAny(text, "excellent", "5", "five"):
		return surveyExcellent
	case containsAny(text, "good", "4", "four"):
		return surveyGood
	case containsAny(text, "bad", "poor", "1", "one"):
		return surveyBad
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type Band string

const (
	BandHigh     Band = "high"
	BandGood     Band = "good"
	BandModerate Band = "moderate"
	BandLow      Band = "low"
)

// BandFor buckets a score for display.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandHigh
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandModerate
	default:
		return BandLow
	}
}
