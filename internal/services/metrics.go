package services

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Quota units charged by the Data API per call.
const (
	quotaUnitsSearch        = 100
	quotaUnitsVideosList    = 1
	quotaUnitsCommentThread = 1
)

var metrics struct {
	SearchRequests    atomic.Int64
	MetadataRequests  atomic.Int64
	CommentRequests   atomic.Int64
	OEmbedRequests    atomic.Int64
	CaptionProbes     atomic.Int64
	QuotaUnits        atomic.Int64
	APIErrors         atomic.Int64
	CandidatesChecked atomic.Int64
	VideosAccepted    atomic.Int64
	VideosRejected    atomic.Int64
	VideosPromoted    atomic.Int64
	VideosDiscarded   atomic.Int64
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
}

var metricKeys = []string{
	"youtube_search_requests", "youtube_metadata_requests", "youtube_comment_requests",
	"oembed_requests", "caption_probes",
	"quota_units_used", "api_errors",
	"candidates_checked", "videos_accepted", "videos_rejected",
	"videos_promoted", "videos_discarded",
	"metadata_cache_hits", "metadata_cache_misses",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"youtube_search_requests":   metrics.SearchRequests.Load(),
		"youtube_metadata_requests": metrics.MetadataRequests.Load(),
		"youtube_comment_requests":  metrics.CommentRequests.Load(),
		"oembed_requests":           metrics.OEmbedRequests.Load(),
		"caption_probes":            metrics.CaptionProbes.Load(),
		"quota_units_used":          metrics.QuotaUnits.Load(),
		"api_errors":                metrics.APIErrors.Load(),
		"candidates_checked":        metrics.CandidatesChecked.Load(),
		"videos_accepted":           metrics.VideosAccepted.Load(),
		"videos_rejected":           metrics.VideosRejected.Load(),
		"videos_promoted":           metrics.VideosPromoted.Load(),
		"videos_discarded":          metrics.VideosDiscarded.Load(),
		"metadata_cache_hits":       metrics.CacheHits.Load(),
		"metadata_cache_misses":     metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func chargeQuota(units int64) { metrics.QuotaUnits.Add(units) }
