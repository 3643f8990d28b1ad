// Package sentiment labels comment text as positive, negative, or neutral.
// The interface leaves room for a model-backed implementation later; the
// lexicon classifier here is a cheap word-counting stand-in that needs no
// external service.
package sentiment

import (
	"context"
	"strings"
)

const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

type Result struct {
	Label string
	Score float64
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

type LexiconClassifier struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

var _ Classifier = (*LexiconClassifier)(nil)

func makeSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: makeSet([]string{
			"amazing", "awesome", "best", "brilliant", "excellent", "fantastic",
			"good", "great", "happy", "helpful", "love", "loved", "nice",
			"perfect", "thanks", "thank", "useful", "wonderful",
		}),
		negative: makeSet([]string{
			"awful", "bad", "boring", "broken", "disappointing", "hate",
			"hated", "horrible", "misleading", "poor", "terrible", "useless",
			"waste", "worst", "wrong",
		}),
	}
}

func (c *LexiconClassifier) Classify(ctx context.Context, text string) (Result, error) {
	var positive, negative int

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")

		if _, ok := c.positive[word]; ok {
			positive++
		}
		if _, ok := c.negative[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return Result{Label: LabelNeutral, Score: 0}, nil
	}

	score := float64(positive-negative) / float64(total)

	switch {
	case score > 0:
		return Result{Label: LabelPositive, Score: score}, nil
	case score < 0:
		return Result{Label: LabelNegative, Score: -score}, nil
	default:
		return Result{Label: LabelNeutral, Score: 0}, nil
	}
}
