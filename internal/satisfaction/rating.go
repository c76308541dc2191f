package satisfaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"aurora-dashboard/internal/cache"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/llm"
)

type RatingSource string

const (
	SourceLLM      RatingSource = "llm"
	SourceKeywords RatingSource = "keywords"
)

// Rating is a 1-100 assessment of one call with the reasons behind it.
type Rating struct {
	Score               int          `json:"score"`
	Band                Band         `json:"band"`
	Reasoning           string       `json:"reasoning"`
	Strengths           []string     `json:"strengths"`
	AreasForImprovement []string     `json:"areasForImprovement"`
	Source              RatingSource `json:"source"`
}

// Completer is satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, msgs []llm.Message) (string, error)
}

const (
	DefaultRatingTTL = 24 * time.Hour
	maxReasoning     = 500
)

var (
	scoreField = regexp.MustCompile(`(?i)score["\s:]*(\d+)`)
	scoreOutOf = regexp.MustCompile(`(?i)(\d+)\s*(?:out of|from|on a scale)`)
)

func ratingClamp(n int) int { return max(1, min(100, n)) }

// Rater rates calls with a language model and falls back to the keyword
// heuristic when no model is configured or the model call fails.
type Rater struct {
	llm   Completer
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewRater accepts a nil model (keywords only) and a nil cache.
func NewRater(model Completer, c cache.Cache, ttl time.Duration, log *slog.Logger) *Rater {
	if ttl <= 0 {
		ttl = DefaultRatingTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Rater{llm: model, cache: c, ttl: ttl, log: log}
}

func ratingKey(rec calls.CallRecord) string {
	return fmt.Sprintf("rating:%d:%d", rec.CustomerID, rec.ID)
}

// Rate returns the call's rating. Model ratings are cached per call; keyword
// fallbacks are not, so a later request retries the model.
func (r *Rater) Rate(ctx context.Context, rec calls.CallRecord) Rating {
	key := ratingKey(rec)
	if r.cache != nil {
		if b, fresh, err := r.cache.Get(ctx, key); err == nil && fresh {
			var cached Rating
			if json.Unmarshal(b, &cached) == nil {
				return cached
			}
		}
	}

	transcript := strings.TrimSpace(transcriptText(rec.Transcript) + " " + messagesText(rec.Messages))
	if r.llm == nil || (transcript == "" && rec.Summary == "") {
		return KeywordRating(transcript, rec.Summary, rec.EndedReason)
	}

	reply, err := r.llm.Complete(ctx, ratingPrompt(transcript, rec.Summary))
	if err != nil || strings.TrimSpace(reply) == "" {
		r.log.Warn("llm rating failed, using keywords", "call_id", rec.ID, "err", err)
		return KeywordRating(transcript, rec.Summary, rec.EndedReason)
	}

	rating := ParseRating(reply)
	if r.cache != nil {
		if b, err := json.Marshal(rating); err == nil {
			if err := r.cache.Set(ctx, key, b, r.ttl); err != nil {
				r.log.Warn("rating cache set failed", "err", err)
			}
		}
	}
	return rating
}

func ratingPrompt(transcript, summary string) []llm.Message {
	var b strings.Builder
	b.WriteString("Analyze the following customer service call and rate it from 1 to 100, where 100 is excellent and 1 is very poor.\n\n")
	if summary != "" {
		b.WriteString("Call Summary: " + summary + "\n\n")
	}
	b.WriteString("Call Transcript:\n" + transcript + "\n\n")
	b.WriteString(`Respond in JSON only:
{
  "score": <number 1-100>,
  "reasoning": "<detailed explanation>",
  "strengths": ["<strength>"],
  "areasForImprovement": ["<area>"]
}`)
	return []llm.Message{
		{Role: "system", Content: "You are an expert call quality analyst."},
		{Role: "user", Content: b.String()},
	}
}

// ParseRating reads a model reply. A JSON object is preferred; otherwise a
// "score: N" or "N out of" mention is used, else the score is Neutral.
func ParseRating(reply string) Rating {
	if raw := llm.ExtractJSON(reply); raw != "" {
		var parsed struct {
			Score               float64  `json:"score"`
			Reasoning           string   `json:"reasoning"`
			Strengths           []string `json:"strengths"`
			AreasForImprovement []string `json:"areasForImprovement"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			score := Neutral
			if parsed.Score != 0 {
				score = ratingClamp(int(math.Round(parsed.Score)))
			}
			if parsed.Reasoning == "" {
				parsed.Reasoning = "Analysis completed"
			}
			return newRating(score, parsed.Reasoning, parsed.Strengths, parsed.AreasForImprovement, SourceLLM)
		}
	}

	score := Neutral
	m := scoreField.FindStringSubmatch(reply)
	if m == nil {
		m = scoreOutOf.FindStringSubmatch(reply)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			score = ratingClamp(n)
		}
	}
	reasoning := strings.TrimSpace(reply)
	if r := []rune(reasoning); len(r) > maxReasoning {
		reasoning = string(r[:maxReasoning])
	}
	return newRating(score, reasoning, nil, nil, SourceLLM)
}

// KeywordRating rates a call from keyword counts and the heuristic Score.
func KeywordRating(transcript, summary, endedReason string) Rating {
	text := strings.ToLower(strings.TrimSpace(summary + " " + transcript))
	pos, neg := KeywordCounts(text)

	var strengths, areas []string
	if pos > 0 {
		strengths = []string{"Positive customer interactions detected"}
	}
	if neg > 0 {
		areas = []string{"Some negative sentiment detected"}
	}
	reasoning := fmt.Sprintf("Based on keyword analysis: found %d positive indicators and %d negative indicators.", pos, neg)
	return newRating(ratingClamp(Score(text, endedReason)), reasoning, strengths, areas, SourceKeywords)
}

func newRating(score int, reasoning string, strengths, areas []string, src RatingSource) Rating {
	if strengths == nil {
		strengths = []string{}
	}
	if areas == nil {
		areas = []string{}
	}
	return Rating{
		Score:               score,
		Band:                BandFor(score),
		Reasoning:           reasoning,
		Strengths:           strengths,
		AreasForImprovement: areas,
		Source:              src,
	}
}
