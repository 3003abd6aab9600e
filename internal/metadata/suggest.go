package metadata

import "strings"

const (
	// DefaultCategory is suggested when no keyword matches
	DefaultCategory  = "Entertainment"
	minSuggestedTags = 3
	maxSuggestedTags = 5
)

type keywordRule struct {
	label    string
	keywords []string
}

// categoryRules are checked in order; the first rule with a matching keyword wins
var categoryRules = []keywordRule{
	{"Music", []string{"music", "song", "album", "concert", "official video", "lyrics", "remix", "cover"}},
	{"Gaming", []string{"gaming", "gameplay", "game", "playthrough", "speedrun", "minecraft", "fortnite", "esports"}},
	{"Education", []string{"tutorial", "learn", "lesson", "course", "explained", "lecture", "how to", "guide"}},
	{"Cooking", []string{"recipe", "cooking", "cook", "kitchen", "baking", "chef", "food"}},
	{"Fitness", []string{"workout", "fitness", "exercise", "yoga", "gym", "training"}},
	{"Sports", []string{"football", "soccer", "basketball", "nba", "nfl", "tennis", "highlights", "match"}},
	{"Technology", []string{"tech", "review", "unboxing", "programming", "coding", "software", "iphone", "android"}},
	{"Comedy", []string{"comedy", "funny", "prank", "standup", "stand-up", "meme", "sketch"}},
	{"Travel", []string{"travel", "vlog", "trip", "tour", "destination", "adventure"}},
	{"News", []string{"news", "breaking", "report", "politics", "interview"}},
	{"Movies", []string{"trailer", "movie", "film", "teaser", "cinema", "scene"}},
}

// tagRules contribute their label as a tag whenever any keyword matches
var tagRules = []keywordRule{
	{"music", []string{"music", "song", "album", "concert", "lyrics"}},
	{"gaming", []string{"gaming", "gameplay", "game", "playthrough"}},
	{"tutorial", []string{"tutorial", "how to", "guide", "lesson"}},
	{"education", []string{"learn", "course", "explained", "lecture"}},
	{"cooking", []string{"recipe", "cooking", "baking", "kitchen"}},
	{"fitness", []string{"workout", "fitness", "exercise", "yoga"}},
	{"sports", []string{"football", "soccer", "basketball", "highlights"}},
	{"tech", []string{"tech", "programming", "coding", "software"}},
	{"review", []string{"review", "unboxing"}},
	{"comedy", []string{"comedy", "funny", "prank", "meme"}},
	{"travel", []string{"travel", "trip", "tour"}},
	{"vlog", []string{"vlog"}},
	{"news", []string{"news", "breaking"}},
	{"movie", []string{"trailer", "movie", "film"}},
	{"diy", []string{"diy", "craft", "build"}},
	{"shorts", []string{"#shorts", "shorts"}},
}

var fallbackTags = []string{"video", "saved", "watch-later"}

// SuggestCategory returns a best-guess category name for m
func SuggestCategory(m Metadata) string {
	text := searchText(m)
	for _, rule := range categoryRules {
		if rule.matches(text) {
			return rule.label
		}
	}
	return DefaultCategory
}

// SuggestTags returns between 3 and 5 lowercase tags for m
func SuggestTags(m Metadata) []string {
	text := searchText(m)
	seen := make(map[string]bool)
	tags := make([]string, 0, maxSuggestedTags)

	add := func(tag string) {
		if !seen[tag] && len(tags) < maxSuggestedTags {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for _, rule := range tagRules {
		if rule.matches(text) {
			add(rule.label)
		}
	}
	for _, tag := range fallbackTags {
		if len(tags) >= minSuggestedTags {
			break
		}
		add(tag)
	}
	return tags
}

func (r keywordRule) matches(text string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func searchText(m Metadata) string {
	return strings.ToLower(m.Title + " " + m.Description + " " + m.Author)
}
