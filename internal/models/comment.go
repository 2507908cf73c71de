package models

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type CommentRecord struct {
	Text      string    `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
}

type SentimentHistogram struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Total    int `json:"total"`
}

func (h *SentimentHistogram) Add(s Sentiment) {
	switch s {
	case SentimentPositive:
		h.Positive++
	case SentimentNegative:
		h.Negative++
	default:
		h.Neutral++
	}
	h.Total++
}

// Moment is a timestamp-anchored highlight mined from a comment.
type Moment struct {
	TimestampText      string    `json:"timestamp"`
	Seconds            int       `json:"seconds"`
	SourceComment      string    `json:"comment"`
	RelevanceScore     float64   `json:"relevance_score"`
	CategoryMatchCount int       `json:"category_matches"`
	ClipPotential      bool      `json:"clip_potential"`
	Sentiment          Sentiment `json:"sentiment"`
}

type CommentAnalysis struct {
	Comments  []CommentRecord    `json:"comments"`
	Histogram SentimentHistogram `json:"sentiment"`
	Moments   []Moment           `json:"moments"`
}

// Texts returns the raw comment bodies.
func (a *CommentAnalysis) Texts() []string {
	out := make([]string, len(a.Comments))
	for i, c := range a.Comments {
		out[i] = c.Text
	}
	return out
}
