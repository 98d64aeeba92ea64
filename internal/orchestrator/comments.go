package orchestrator

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CommentKind is the category a poll cycle assigns to each comment.
type CommentKind string

const (
	KindMethodologyQuestion CommentKind = "methodology_question"
	KindResultReport        CommentKind = "test_results_report"
	KindIgnore              CommentKind = "ignore"
)

// Hostile or unfalsifiable phrasing is never engaged with.
var ignorePattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\b(fake|fraud|scam|garbage|stupid|worthless|shill)\b`,
	`\b(prove\s+it|trust\s+me|obviously|everyone\s+knows)\b`,
	`\b(will\s+dominate|best\s+ever|revolutionary|guaranteed)\b`,
}, "|"))

var methodologyKeywords = []string{
	"methodology", "how was it tested", "constraints", "benchmark", "asr",
	"success rate", "quality delta", "token", "wall time", "replication",
	"what was tested", "evaluation", "criteria", "aggregate", "summary_v1",
}

var resultReportKeywords = []string{
	"ran the benchmark", "our results", "summary_v1", "replicated",
	"we ran", "our run", "our summary", "test results", "our metrics",
}

// CommentClassifier categorizes comments without generating content. A
// small LRU keyed by comment ID keeps repeated poll cycles from re-scanning
// the same bodies.
type CommentClassifier struct {
	cache *lru.Cache[string, CommentKind]
}

// NewCommentClassifier builds a classifier with the given cache size.
func NewCommentClassifier(cacheSize int) (*CommentClassifier, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, CommentKind](cacheSize)
	if err != nil {
		return nil, err
	}
	return &CommentClassifier{cache: cache}, nil
}

// Classify maps one comment body to its kind. Blocklisted text is ignored
// before any keyword check; methodology questions outrank result reports
// when both match.
func (c *CommentClassifier) Classify(commentID, body string) CommentKind {
	if commentID != "" {
		if kind, ok := c.cache.Get(commentID); ok {
			return kind
		}
	}
	kind := classify(body)
	if commentID != "" {
		c.cache.Add(commentID, kind)
	}
	return kind
}

func classify(body string) CommentKind {
	text := strings.ToLower(strings.TrimSpace(body))
	if text == "" {
		return KindIgnore
	}
	if ignorePattern.MatchString(text) {
		return KindIgnore
	}
	for _, k := range methodologyKeywords {
		if strings.Contains(text, k) {
			return KindMethodologyQuestion
		}
	}
	for _, k := range resultReportKeywords {
		if strings.Contains(text, k) {
			return KindResultReport
		}
	}
	return KindIgnore
}
