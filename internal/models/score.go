package models

// Component keys of the weighted composite score.
const (
	ComponentValidation   = "comment_validation"
	ComponentEmotional    = "comment_emotional"
	ComponentAuthenticity = "comment_authenticity"
	ComponentContentMatch = "content_match"
	ComponentEngagement   = "engagement"
)

type ScoreResult struct {
	FinalScore      float64            `json:"final_score"` // [0, 10]
	Confidence      float64            `json:"confidence"`  // [0, 1]
	ComponentScores map[string]float64 `json:"component_scores"`
	Breakdown       map[string]int     `json:"breakdown"`
	Moments         []Moment           `json:"moments"`
}

// CategoryValidation is the comment_validation component, or 0 when absent.
func (s *ScoreResult) CategoryValidation() float64 {
	if s == nil {
		return 0
	}
	return s.ComponentScores[ComponentValidation]
}
