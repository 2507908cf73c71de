package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"clipscout-backend/internal/models"
)

// Rejection reasons.
const (
	ReasonDuplicateSession   = "duplicate (session)"
	ReasonDuplicatePersisted = "duplicate (persisted)"
	ReasonAlreadyProcessed   = "already processed"
	ReasonFetchFailed        = "fetch failed"
	ReasonNoCaptions         = "no captions"
	ReasonTooOld             = "too old"
	ReasonShortForm          = "short-form detected"
	ReasonTooShort           = "too short"
	ReasonMusicVideo         = "music video detected"
	ReasonCompilation        = "compilation detected"
	ReasonLowViews           = "view count too low"
	ReasonNoCategoryKeywords = "no category keywords"
)

type ValidationConfig struct {
	MaxAge          time.Duration
	ShortFormMaxSec int
	MinDurationSec  int
	MinViews        int64
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxAge:          180 * 24 * time.Hour,
		ShortFormMaxSec: 60,
		MinDurationSec:  90,
		MinViews:        10000,
	}
}

// Verdict is the outcome of validating one candidate. Err is set only
// when the rejection came from an upstream failure.
type Verdict struct {
	Accepted bool
	Reason   string
	Detail   string
	Metadata *models.VideoMetadata
	Err      error
}

// Fatal reports whether the verdict carries a run-ending error.
func (v Verdict) Fatal() bool {
	return v.Err != nil && IsFatal(v.Err)
}

func accept(meta *models.VideoMetadata) Verdict {
	return Verdict{Accepted: true, Metadata: meta}
}

func reject(reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

// Pipeline runs the ordered accept/reject rules. Checks that cost nothing
// run before the metadata fetch, and the layout probe runs only when the
// duration and keyword checks did not already decide.
type Pipeline struct {
	meta     MetadataFetcher
	layout   LayoutProbe  // optional
	captions CaptionProbe // optional
	cfg      ValidationConfig
	now      func() time.Time
}

func NewPipeline(meta MetadataFetcher, layout LayoutProbe, captions CaptionProbe, cfg ValidationConfig) *Pipeline {
	return &Pipeline{meta: meta, layout: layout, captions: captions, cfg: cfg, now: time.Now}
}

func (p *Pipeline) Validate(ctx context.Context, cc *CollectionContext, cand models.Candidate, category models.Category, requireCaptions bool) Verdict {
	if cand.ID == "" {
		return reject(ReasonFetchFailed, "empty video id")
	}

	if cc.InSession(cand.ID) {
		return reject(ReasonDuplicateSession, "")
	}
	if cc.Persisted(cand.ID) {
		return reject(ReasonDuplicatePersisted, "")
	}
	if cc.Discarded(models.WatchURL(cand.ID)) {
		return reject(ReasonAlreadyProcessed, "")
	}

	meta, err := p.meta.GetVideoMetadata(ctx, cand.ID)
	if err != nil || meta == nil {
		v := reject(ReasonFetchFailed, "")
		if err != nil {
			v.Detail = err.Error()
			v.Err = err
		}
		return v
	}

	hasCaptions := meta.HasCaptions
	if !hasCaptions && requireCaptions && p.captions != nil {
		hasCaptions = p.captions.HasCaptions(ctx, cand.ID)
	}
	cc.recordCaption(hasCaptions)
	if requireCaptions && !hasCaptions {
		return reject(ReasonNoCaptions, "")
	}
	if hasCaptions != meta.HasCaptions {
		upgraded := *meta
		upgraded.HasCaptions = hasCaptions
		meta = &upgraded
	}

	now := p.now()
	if meta.PublishedAt.IsZero() || meta.PublishedAt.Before(now.Add(-p.cfg.MaxAge)) {
		return reject(ReasonTooOld, ageDetail(meta.PublishedAt, now))
	}

	if detail, short := p.shortForm(ctx, meta); short {
		return reject(ReasonShortForm, detail)
	}

	if meta.DurationSeconds < p.cfg.MinDurationSec {
		return reject(ReasonTooShort, fmt.Sprintf("%ds < %ds", meta.DurationSeconds, p.cfg.MinDurationSec))
	}

	title := strings.ToLower(meta.Title)
	tags := lowerAll(meta.Tags)
	if kw, ok := matchTitleOrTags(title, tags, musicKeywords); ok {
		return reject(ReasonMusicVideo, "keyword: "+kw)
	}
	if kw, ok := matchTitleOrTags(title, tags, compilationKeywords); ok {
		return reject(ReasonCompilation, "keyword: "+kw)
	}

	if meta.ViewCount < p.cfg.MinViews {
		return reject(ReasonLowViews, fmt.Sprintf("%d < %d", meta.ViewCount, p.cfg.MinViews))
	}

	text := title + " " + strings.ToLower(meta.Description)
	if countMatches(text, categoryKeywords[category]) == 0 {
		return reject(ReasonNoCategoryKeywords, string(category))
	}

	return accept(meta)
}

func (p *Pipeline) shortForm(ctx context.Context, meta *models.VideoMetadata) (string, bool) {
	if meta.DurationSeconds <= p.cfg.ShortFormMaxSec {
		return fmt.Sprintf("duration %ds", meta.DurationSeconds), true
	}

	title := strings.ToLower(meta.Title)
	desc := strings.ToLower(meta.Description)
	for _, tag := range shortsHashtags {
		if strings.Contains(title, tag) || strings.Contains(desc, tag) {
			return "hashtag " + tag, true
		}
	}
	if strings.Contains(title, "short video") {
		return "title keyword", true
	}

	if p.layout == nil {
		return "", false
	}
	signals, err := p.layout.Signals(ctx, meta.ID)
	if err != nil {
		// The probe is advisory; the duration rules still apply.
		if !errors.Is(err, context.Canceled) {
			slog.Debug("layout probe failed", slog.String("video_id", meta.ID), slog.Any("error", err))
		}
		return "", false
	}
	if IsShortFormLayout(signals) {
		return "embed layout", true
	}
	return "", false
}

func matchTitleOrTags(title string, tags []string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if containsKeyword(title, kw) {
			return kw, true
		}
		for _, tag := range tags {
			if containsKeyword(tag, kw) {
				return kw, true
			}
		}
	}
	return "", false
}

// containsKeyword matches short keywords ("ost", "mv") as whole words only,
// so "most" or "lost" do not count as music indicators.
func containsKeyword(text, kw string) bool {
	if len(kw) > 3 {
		return strings.Contains(text, kw)
	}
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == kw {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func ageDetail(published, now time.Time) string {
	if published.IsZero() {
		return "unparseable publish date"
	}
	return fmt.Sprintf("%d days", int(now.Sub(published).Hours()/24))
}
