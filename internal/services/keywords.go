package services

import (
	"strings"

	"clipscout-backend/internal/models"
)

var searchQueries = map[models.Category][]string{
	models.CategoryHeartwarming: {
		"soldier surprise homecoming", "dog reunion owner", "random acts kindness",
		"baby first time hearing", "proposal reaction emotional", "surprise gift reaction",
		"homeless man helped", "teacher surprised students", "reunion after years",
		"saving animal rescue", "kid helps stranger", "emotional wedding moment",
		"surprise visit family", "grateful reaction wholesome", "community helps neighbor",
		"dad meets baby", "emotional support moment", "stranger pays bill",
		"found lost pet", "surprise donation reaction", "elderly couple sweet",
		"child generous sharing", "unexpected hero saves", "touching tribute video",
		"surprise reunion compilation", "faith humanity restored", "emotional thank you",
		"surprise birthday elderly", "veteran honored ceremony", "wholesome interaction strangers",
	},
	models.CategoryFunny: {
		"funny fails compilation", "unexpected moments caught", "comedy sketches viral",
		"hilarious reactions", "funny animals doing", "epic fail video",
		"instant karma funny", "comedy gold moments", "prank goes wrong",
		"funny kids saying", "dad jokes reaction", "wedding fails funny",
		"sports bloopers hilarious", "funny news bloopers", "pet fails compilation",
		"funny work moments", "hilarious misunderstanding", "comedy timing perfect",
		"funny voice over", "unexpected plot twist", "funny security camera",
		"hilarious interview moments", "comedy accident harmless", "funny dancing fails",
		"laughing contagious video", "funny sleep talking", "comedy scare pranks",
		"funny workout fails", "hilarious costume fails", "funny zoom fails",
	},
	models.CategoryTraumatic: {
		"shocking moments caught", "dramatic rescue operation", "natural disaster footage",
		"intense police chase", "survival story real", "near death experience",
		"unbelievable close call", "extreme weather footage", "emergency response dramatic",
		"accident caught camera", "dangerous situation survived", "storm chaser footage",
		"rescue mission dramatic", "wildfire evacuation footage", "flood rescue dramatic",
		"earthquake footage real", "tornado close encounter", "avalanche survival story",
		"lightning strike caught", "road rage incident", "building collapse footage",
		"helicopter rescue dramatic", "cliff rescue operation", "shark encounter real",
		"volcano eruption footage", "mudslide caught camera", "train near miss",
		"bridge collapse footage", "explosion caught camera", "emergency landing footage",
	},
}

// SearchQueries returns a copy of the query pool for a category.
func SearchQueries(c models.Category) []string {
	return append([]string(nil), searchQueries[c]...)
}

// Validation keyword tables.
var (
	shortsHashtags = []string{"#shorts", "#short", "#youtubeshorts", "#ytshorts"}

	musicKeywords = []string{
		"music video", "official video", "official music", "lyrics", "lyric video",
		"audio", "soundtrack", "ost", "mv", "song", "album", "single release",
	}

	compilationKeywords = []string{
		"best of", "top 10", "top 20", "montage", "every time", "all moments", "mega compilation",
	}

	categoryKeywords = map[models.Category][]string{
		models.CategoryHeartwarming: {
			"heartwarming", "touching", "emotional", "reunion", "surprise", "family", "love",
			"soldier", "homecoming", "dog reunion", "acts kindness", "baby first time",
			"proposal reaction", "homeless helped", "teacher surprised", "saving animal",
			"grateful", "wholesome", "sweet", "helping",
		},
		models.CategoryFunny: {
			"funny", "comedy", "humor", "hilarious", "joke", "laugh", "entertaining",
			"fails", "epic fail", "instant karma", "prank", "bloopers", "comedy gold",
			"dad jokes", "silly", "amusing", "comical", "laughing",
		},
		models.CategoryTraumatic: {
			"accident", "tragedy", "disaster", "emergency", "breaking news", "shocking",
			"dramatic rescue", "natural disaster", "police chase", "survival story",
			"near death", "extreme weather", "earthquake", "tornado", "avalanche",
			"explosion", "crash", "incident", "dangerous", "intense",
		},
	}
)

// Search hint tables.
var (
	negativeSearchTerms = []string{"-shorts", "-#shorts", `-"music video"`, "-lyrics", "-compilation"}

	negativeTitleKeywords = []string{"#shorts", "#short", "music video", "lyrics", "compilation"}
)

// Comment mining tables.
var (
	positiveSentimentWords = []string{"amazing", "incredible", "beautiful", "love", "great", "good", "nice", "happy"}
	negativeSentimentWords = []string{"terrible", "awful", "worst", "hate", "bad", "fake", "boring"}

	momentCategoryKeywords = map[models.Category][]string{
		models.CategoryHeartwarming: {"crying", "tears", "emotional", "touching", "beautiful", "best part", "favorite moment"},
		models.CategoryFunny:        {"laugh", "hilarious", "funny", "lol", "comedy", "joke", "humor"},
		models.CategoryTraumatic:    {"shocking", "unbelievable", "devastating", "terrible", "awful", "important", "crucial moment"},
	}

	clipIntentKeywords    = []string{"clip this", "short", "viral", "best part", "highlight", "moment", "scene", "timestamp", "here"}
	strongEmotionKeywords = []string{"amazing", "incredible", "unbelievable", "perfect", "exactly", "omg", "wow"}
)

// Scoring tables.
var (
	heartwarmingPositive     = []string{"crying", "tears", "emotional", "beautiful", "touching", "moving", "wholesome"}
	heartwarmingAuthenticity = []string{"real", "genuine", "authentic", "natural"}
	heartwarmingFake         = []string{"fake", "staged", "acting", "scripted"}

	funnyHumor         = []string{"laugh", "funny", "hilarious", "lol", "haha", "comedy", "joke"}
	funnyEntertainment = []string{"entertaining", "fun", "enjoy", "smile"}
	funnyBoring        = []string{"boring", "not funny", "stupid", "lame"}

	traumaticEmpathy       = []string{"prayers", "sorry", "sad", "terrible", "awful", "devastating"}
	traumaticConcern       = []string{"hope everyone ok", "what happened", "is everyone safe"}
	traumaticInappropriate = []string{"lol", "funny", "cool", "awesome"}

	contentMatchKeywords = map[models.Category][]string{
		models.CategoryHeartwarming: {"heartwarming", "touching", "emotional", "reunion", "surprise", "family", "love"},
		models.CategoryFunny:        {"funny", "comedy", "humor", "hilarious", "joke", "laugh", "entertaining"},
		models.CategoryTraumatic:    {"accident", "tragedy", "disaster", "emergency", "breaking news", "shocking"},
	}
)

// countMatches counts the keywords present in text. text must already be lowercase.
func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
