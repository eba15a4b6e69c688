// Package evaluation orchestrates the scoring pipeline: proposal text
// plus a budget table in, a complete score card out.
package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Project-Kyra/Project-Kyra/internal/budget"
	"github.com/Project-Kyra/Project-Kyra/internal/cache"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

// Engine wraps the rubric with a memoization layer. Scoring is a pure
// function of text and budget, so identical submissions can safely reuse
// a cached score card.
type Engine struct {
	rubric *rubric.Rubric
	cache  *cache.Cache
}

// NewEngine creates an engine around the given rubric with a score cache
// of the given TTL.
func NewEngine(r *rubric.Rubric, cacheTTL time.Duration) *Engine {
	return &Engine{
		rubric: r,
		cache:  cache.New(cacheTTL),
	}
}

// Evaluate scores a proposal. Results are cached by a content hash of
// the text and budget amounts.
func (e *Engine) Evaluate(text string, rows []budget.Row) rubric.ScoreCard {
	key := e.cacheKey(text, rows)

	if data, ok := e.cache.Get(key); ok {
		var card rubric.ScoreCard
		if err := json.Unmarshal(data, &card); err == nil {
			return card
		}
	}

	card := e.rubric.Evaluate(text, rows)

	if data, err := json.Marshal(card); err == nil {
		e.cache.Set(key, data)
	}

	return card
}

// CacheStats exposes score-cache statistics for the metrics endpoint.
func (e *Engine) CacheStats() map[string]interface{} {
	return e.cache.Stats()
}

// cacheKey derives an injective content key: the text is length-prefixed
// so it can never bleed into the amount list, and amounts are delimited.
func (e *Engine) cacheKey(text string, rows []budget.Row) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:", len(text))
	sb.WriteString(text)
	for _, row := range rows {
		fmt.Fprintf(&sb, "|%v", row.Amount)
	}
	return cache.Key(sb.String())
}
