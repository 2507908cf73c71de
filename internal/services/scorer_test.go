package services

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout-backend/internal/models"
)

func TestFinalize_AuthenticityPenaltyAfterWeighting(t *testing.T) {
	s := NewCategoryScorer(DefaultScorerConfig())
	assert.InDelta(t, 4.8, s.finalize(8.0, 0.5, 0.1), 1e-9)
	assert.InDelta(t, 8.0, s.finalize(8.0, 0.5, 0.2), 1e-9)
	assert.InDelta(t, 9.0, s.finalize(8.0, 0.81, 0.5), 1e-9)
	assert.InDelta(t, 10.0, s.finalize(9.5, 0.9, 0.5), 1e-9)
	assert.InDelta(t, 0.0, s.finalize(-3, 0, 0), 1e-9)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.3, confidence(0, 0), 1e-9)
	assert.InDelta(t, 0.6, confidence(101, 0), 1e-9)
	assert.InDelta(t, 0.8, confidence(501, 0.6), 1e-9)
	assert.InDelta(t, 1.0, confidence(501, 0.61), 1e-9)
}

func TestScore_StrongHeartwarming(t *testing.T) {
	var comments []string
	for i := 0; i < 10; i++ {
		comments = append(comments, "crying tears so emotional and beautiful, touching, moving, wholesome, so real and genuine")
	}
	m := goodMeta("vid")
	res := NewCategoryScorer(DefaultScorerConfig()).Score(ScoreInput{
		Title:        m.Title,
		Description:  m.Description,
		ViewCount:    m.ViewCount,
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
		Comments:     comments,
	}, models.CategoryHeartwarming)

	assert.InDelta(t, 1.0, res.ComponentScores[models.ComponentValidation], 1e-9)
	assert.InDelta(t, 1.0, res.ComponentScores[models.ComponentAuthenticity], 1e-9)
	assert.InDelta(t, 0.8, res.ComponentScores[models.ComponentContentMatch], 1e-9)
	assert.InDelta(t, 1.0, res.ComponentScores[models.ComponentEngagement], 1e-9)
	assert.Equal(t, 10.0, res.FinalScore)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Equal(t, 7, res.Breakdown["positive_emotions"])
}

func TestScore_EmptyComments(t *testing.T) {
	res := NewCategoryScorer(DefaultScorerConfig()).Score(ScoreInput{Title: "untitled"}, models.CategoryHeartwarming)

	assert.Zero(t, res.ComponentScores[models.ComponentValidation])
	assert.Zero(t, res.ComponentScores[models.ComponentAuthenticity])
	assert.InDelta(t, 0.5, res.ComponentScores[models.ComponentEngagement], 1e-9)
	// (3.0 + 7*0.05*0.5) * 0.6
	assert.InDelta(t, (3.0+7*0.05*0.5)*0.6, res.FinalScore, 1e-9)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
}

func TestAnalyzeCommentSignals_Penalties(t *testing.T) {
	t.Run("heartwarming fake indicators halve validation", func(t *testing.T) {
		sig := analyzeCommentSignals([]string{"so fake and staged, crying though"}, models.CategoryHeartwarming)
		assert.InDelta(t, 0.5, sig.validation, 1e-9)
		assert.InDelta(t, 0.1, sig.authenticity, 1e-9)
	})

	t.Run("traumatic inappropriate reactions", func(t *testing.T) {
		sig := analyzeCommentSignals([]string{"prayers lol cool awesome funny"}, models.CategoryTraumatic)
		assert.InDelta(t, 0.3, sig.validation, 1e-9)
		assert.Equal(t, 4, sig.breakdown["inappropriate_responses"])
	})

	t.Run("funny tie is neutral authenticity", func(t *testing.T) {
		sig := analyzeCommentSignals([]string{"nothing to see"}, models.CategoryFunny)
		assert.InDelta(t, 0.5, sig.authenticity, 1e-9)
		sig = analyzeCommentSignals([]string{"boring"}, models.CategoryFunny)
		assert.InDelta(t, 0.2, sig.authenticity, 1e-9)
	})
}

func TestScore_AlwaysBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	vocab := []string{
		"crying", "fake", "lol", "prayers", "funny", "real", "boring", "awesome",
		"hope everyone ok", "tears", "wholesome", "haha", "staged", "sad", "meh",
	}
	s := NewCategoryScorer(DefaultScorerConfig())

	for i := 0; i < 500; i++ {
		n := rng.IntN(700)
		comments := make([]string, n)
		for j := range comments {
			words := make([]string, 1+rng.IntN(6))
			for k := range words {
				words[k] = vocab[rng.IntN(len(vocab))]
			}
			comments[j] = strings.Join(words, " ")
		}
		in := ScoreInput{
			Title:        vocab[rng.IntN(len(vocab))] + " surprise reunion accident",
			ViewCount:    rng.Int64N(1_000_000),
			LikeCount:    rng.Int64N(100_000),
			CommentCount: rng.Int64N(10_000),
			Comments:     comments,
		}
		for _, cat := range models.Categories {
			res := s.Score(in, cat)
			require.GreaterOrEqual(t, res.FinalScore, 0.0)
			require.LessOrEqual(t, res.FinalScore, 10.0)
			require.GreaterOrEqual(t, res.Confidence, 0.0)
			require.LessOrEqual(t, res.Confidence, 1.0)
		}
	}
}
