package services

import (
	"math"
	"strings"

	"clipscout-backend/internal/models"
)

// CategoryWeights must sum to 1.0.
type CategoryWeights struct {
	Validation   float64
	Emotional    float64
	Authenticity float64
	ContentMatch float64
	Engagement   float64
	Base         float64
}

type ScorerConfig struct {
	Weights             map[models.Category]CategoryWeights
	Multiplier          float64
	BonusThreshold      float64 // validation above this earns Bonus
	Bonus               float64
	AuthenticityFloor   float64 // authenticity below this applies AuthenticityPenalty
	AuthenticityPenalty float64
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: map[models.Category]CategoryWeights{
			models.CategoryHeartwarming: {Validation: 0.35, Emotional: 0.25, Authenticity: 0.20, ContentMatch: 0.15, Engagement: 0.05, Base: 3.0},
			models.CategoryFunny:        {Validation: 0.40, Emotional: 0.20, Authenticity: 0.25, ContentMatch: 0.10, Engagement: 0.05, Base: 2.5},
			models.CategoryTraumatic:    {Validation: 0.35, Emotional: 0.30, Authenticity: 0.20, ContentMatch: 0.10, Engagement: 0.05, Base: 4.0},
		},
		Multiplier:          7.0,
		BonusThreshold:      0.8,
		Bonus:               1.0,
		AuthenticityFloor:   0.2,
		AuthenticityPenalty: 0.6,
	}
}

// ScoreInput is everything the scorer needs about one video.
type ScoreInput struct {
	Title        string
	Description  string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	Comments     []string
	Moments      []models.Moment
}

type commentSignals struct {
	validation   float64
	emotional    float64
	authenticity float64
	engagement   float64
	breakdown    map[string]int
}

type CategoryScorer struct {
	cfg ScorerConfig
}

func NewCategoryScorer(cfg ScorerConfig) *CategoryScorer {
	return &CategoryScorer{cfg: cfg}
}

// Score is deterministic and always returns a score in [0, 10] and a
// confidence in [0, 1].
func (s *CategoryScorer) Score(in ScoreInput, category models.Category) *models.ScoreResult {
	sig := analyzeCommentSignals(in.Comments, category)
	sig.breakdown["timestamped_moments_found"] = len(in.Moments)

	components := map[string]float64{
		models.ComponentValidation:   sig.validation,
		models.ComponentEmotional:    sig.emotional,
		models.ComponentAuthenticity: sig.authenticity,
		models.ComponentContentMatch: contentMatch(in.Title, in.Description, category),
		models.ComponentEngagement:   engagementRatio(in.ViewCount, in.LikeCount, in.CommentCount),
	}

	w, ok := s.cfg.Weights[category]
	raw := 0.0
	if ok {
		raw = w.Base + s.cfg.Multiplier*(w.Validation*components[models.ComponentValidation]+
			w.Emotional*components[models.ComponentEmotional]+
			w.Authenticity*components[models.ComponentAuthenticity]+
			w.ContentMatch*components[models.ComponentContentMatch]+
			w.Engagement*components[models.ComponentEngagement])
	}

	return &models.ScoreResult{
		FinalScore:      s.finalize(raw, sig.validation, sig.authenticity),
		Confidence:      confidence(len(in.Comments), sig.validation),
		ComponentScores: components,
		Breakdown:       sig.breakdown,
		Moments:         in.Moments,
	}
}

// finalize applies the validation bonus, then the authenticity penalty to
// the weighted total, then clamps.
func (s *CategoryScorer) finalize(raw, validation, authenticity float64) float64 {
	score := raw
	if validation > s.cfg.BonusThreshold {
		score += s.cfg.Bonus
	}
	if authenticity < s.cfg.AuthenticityFloor {
		score *= s.cfg.AuthenticityPenalty
	}
	return clamp(score, 0, 10)
}

func confidence(commentCount int, validation float64) float64 {
	c := 0.3
	if commentCount > 100 {
		c += 0.3
	}
	if commentCount > 500 {
		c += 0.2
	}
	if validation > 0.6 {
		c += 0.2
	}
	return clamp(c, 0, 1)
}

// analyzeCommentSignals counts keyword presence over the joined comment text.
// Denominators are floored at 1 so tiny samples cannot blow up a ratio.
func analyzeCommentSignals(comments []string, category models.Category) commentSignals {
	if len(comments) == 0 {
		return commentSignals{breakdown: map[string]int{}}
	}

	all := strings.ToLower(strings.Join(comments, " "))
	n := float64(len(comments))

	switch category {
	case models.CategoryHeartwarming:
		pos := countMatches(all, heartwarmingPositive)
		genuine := countMatches(all, heartwarmingAuthenticity)
		fake := countMatches(all, heartwarmingFake)

		validation := ratio(pos, n*0.05)
		if fake > genuine {
			validation *= 0.5
		}
		return commentSignals{
			validation:   validation,
			emotional:    ratio(pos, n*0.03),
			authenticity: math.Max(0.1, math.Min(float64(genuine)/math.Max(float64(fake+1), 1)*0.5, 1)),
			engagement:   ratio(pos, n),
			breakdown: map[string]int{
				"positive_emotions":       pos,
				"authenticity_indicators": genuine,
				"fake_indicators":         fake,
			},
		}

	case models.CategoryFunny:
		humor := countMatches(all, funnyHumor)
		entertain := countMatches(all, funnyEntertainment)
		boring := countMatches(all, funnyBoring)

		authenticity := 0.5
		if humor != boring {
			authenticity = math.Min(0.8, math.Max(0.2, float64(humor)/math.Max(float64(boring+1), 1)*0.4))
		}
		return commentSignals{
			validation:   ratio(humor, n*0.03),
			emotional:    ratio(humor, n*0.02),
			authenticity: authenticity,
			engagement:   ratio(humor, n),
			breakdown: map[string]int{
				"humor_reactions":          humor,
				"entertainment_validation": entertain,
				"negative_reactions":       boring,
			},
		}

	case models.CategoryTraumatic:
		empathy := countMatches(all, traumaticEmpathy)
		concern := countMatches(all, traumaticConcern)
		inappropriate := countMatches(all, traumaticInappropriate)
		appropriate := empathy + concern

		validation := ratio(appropriate, n*0.05)
		if inappropriate > appropriate {
			validation *= 0.3
		}
		return commentSignals{
			validation:   validation,
			emotional:    ratio(empathy, n*0.03),
			authenticity: math.Min(0.8, math.Max(0.2, float64(appropriate)/math.Max(float64(inappropriate+1), 1)*0.3)),
			engagement:   ratio(appropriate, n),
			breakdown: map[string]int{
				"empathetic_responses":    empathy,
				"concern_responses":       concern,
				"inappropriate_responses": inappropriate,
			},
		}
	}

	return commentSignals{validation: 0.5, emotional: 0.5, authenticity: 0.5, engagement: 0.5, breakdown: map[string]int{}}
}

func contentMatch(title, description string, category models.Category) float64 {
	text := strings.ToLower(title + " " + description)
	return math.Min(float64(countMatches(text, contentMatchKeywords[category]))*0.2, 1)
}

// engagementRatio is neutral (0.5) when views are unknown.
func engagementRatio(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0.5
	}
	return clamp(float64(likes+comments)/float64(views)*100, 0, 1)
}

func ratio(count int, denom float64) float64 {
	return math.Min(float64(count)/math.Max(denom, 1), 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
