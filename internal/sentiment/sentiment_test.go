package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconClassifier(t *testing.T) {
	a := assert.New(t)

	c := NewLexiconClassifier()

	for _, e := range []struct {
		name  string
		input string
		label string
	}{
		{"positive", "great video, thanks!", LabelPositive},
		{"negative", "terrible audio, total waste of time", LabelNegative},
		{"neutral", "uploaded on a tuesday", LabelNeutral},
		{"mixed cancels out", "good content but awful editing", LabelNeutral},
		{"case and punctuation", "LOVED it. Perfect!", LabelPositive},
		{"empty", "", LabelNeutral},
	} {
		t.Run(e.name, func(t *testing.T) {
			r, err := c.Classify(context.Background(), e.input)
			a.NoError(err)
			a.Equal(e.label, r.Label)
		})
	}
}

func TestLexiconClassifierScore(t *testing.T) {
	a := assert.New(t)

	c := NewLexiconClassifier()

	r, err := c.Classify(context.Background(), "good good bad")
	a.NoError(err)
	a.Equal(LabelPositive, r.Label)
	a.InDelta(1.0/3.0, r.Score, 0.0001)
}
