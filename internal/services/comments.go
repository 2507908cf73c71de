package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"clipscout-backend/internal/models"
)

const (
	commentPageSize     = 100
	minCommentLength    = 6
	defaultCommentLimit = 500
)

var commentOrders = []string{"relevance", "time"}

// [H:]MM:SS, e.g. "1:20", "12:05", "1:02:33"
var timestampRe = regexp.MustCompile(`\b(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\b`)

// CommentMiner samples comments and extracts sentiment and moments.
type CommentMiner struct {
	source CommentSource
}

func NewCommentMiner(source CommentSource) *CommentMiner {
	return &CommentMiner{source: source}
}

// FetchAndAnalyze pulls up to maxComments unique comments from the relevance
// and recency orderings. Disabled comments yield an empty sample.
func (m *CommentMiner) FetchAndAnalyze(ctx context.Context, videoID string, category models.Category, maxComments int) (*models.CommentAnalysis, error) {
	if maxComments <= 0 {
		maxComments = defaultCommentLimit
	}

	texts, err := m.fetch(ctx, videoID, maxComments)
	if err != nil {
		return nil, err
	}
	return AnalyzeComments(texts, category), nil
}

func (m *CommentMiner) fetch(ctx context.Context, videoID string, maxComments int) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, order := range commentOrders {
		pageToken := ""
		for len(out) < maxComments {
			page, err := m.source.GetComments(ctx, videoID, order, commentPageSize, pageToken)
			if err != nil {
				if errors.Is(err, ErrCommentsDisabled) || errors.Is(err, ErrForbidden) {
					slog.Info("comments unavailable", slog.String("video_id", videoID), slog.Any("error", err))
					return out, nil
				}
				if IsFatal(err) || ctx.Err() != nil {
					return nil, err
				}
				slog.Warn("limited comment access",
					slog.String("video_id", videoID),
					slog.String("order", order),
					slog.Any("error", err),
				)
				break
			}

			for _, text := range page.Texts {
				if len(strings.TrimSpace(text)) < minCommentLength {
					continue
				}
				if _, dup := seen[text]; dup {
					continue
				}
				seen[text] = struct{}{}
				out = append(out, text)
				if len(out) >= maxComments {
					break
				}
			}

			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}
		if len(out) >= maxComments {
			break
		}
	}
	return out, nil
}

// AnalyzeComments labels each comment and mines timestamped moments.
func AnalyzeComments(texts []string, category models.Category) *models.CommentAnalysis {
	a := &models.CommentAnalysis{Comments: make([]models.CommentRecord, 0, len(texts))}
	for _, t := range texts {
		s := AnalyzeSentiment(t)
		a.Comments = append(a.Comments, models.CommentRecord{Text: t, Sentiment: s})
		a.Histogram.Add(s)
	}
	a.Moments = ExtractMoments(texts, category)
	return a
}

// AnalyzeSentiment compares positive and negative keyword presence.
func AnalyzeSentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)
	pos := countMatches(lower, positiveSentimentWords)
	neg := countMatches(lower, negativeSentimentWords)
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// ExtractMoments returns one moment per valid timestamp in each comment with
// a positive relevance score, sorted by relevance desc then seconds asc.
func ExtractMoments(comments []string, category models.Category) []models.Moment {
	var moments []models.Moment

	for _, comment := range comments {
		matches := timestampRe.FindAllStringSubmatch(comment, -1)
		if len(matches) == 0 {
			continue
		}

		lower := strings.ToLower(comment)
		catMatches := countMatches(lower, momentCategoryKeywords[category])
		clipMatches := countMatches(lower, clipIntentKeywords)

		relevance := 2*float64(catMatches) + 1.5*float64(clipMatches)
		if len(comment) > 50 {
			relevance++
		}
		relevance += float64(countMatches(lower, strongEmotionKeywords))
		if relevance <= 0 {
			continue
		}

		sentiment := AnalyzeSentiment(comment)
		seen := make(map[string]struct{})
		for _, m := range matches {
			seconds, ok := timestampSeconds(m)
			if !ok {
				continue
			}
			if _, dup := seen[m[0]]; dup {
				continue
			}
			seen[m[0]] = struct{}{}

			moments = append(moments, models.Moment{
				TimestampText:      m[0],
				Seconds:            seconds,
				SourceComment:      comment,
				RelevanceScore:     relevance,
				CategoryMatchCount: catMatches,
				ClipPotential:      clipMatches > 0,
				Sentiment:          sentiment,
			})
		}
	}

	sort.SliceStable(moments, func(i, j int) bool {
		if moments[i].RelevanceScore != moments[j].RelevanceScore {
			return moments[i].RelevanceScore > moments[j].RelevanceScore
		}
		return moments[i].Seconds < moments[j].Seconds
	})
	return moments
}

// timestampSeconds converts a regex match to seconds, rejecting values like
// "1:75" or "1:75:00".
func timestampSeconds(m []string) (int, bool) {
	hours := 0
	if m[1] != "" {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		hours = h
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	if seconds >= 60 || (m[1] != "" && minutes >= 60) {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}
