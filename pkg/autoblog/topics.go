package autoblog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	topicSourceTrending = "trending"
	topicSourceFallback = "fallback"

	minKeywordLength  = 4
	maxKeywordLength  = 60
	maxSecondaryCount = 4
)

// TrendingSource returns a ranked list of trending search terms for a
// category, bounded to at most limit entries.
type TrendingSource interface {
	TrendingKeywords(ctx context.Context, category string, limit int) ([]string, error)
}

// Selector turns trending signals into a topic package. A transport error or
// an empty trending result silently substitutes the static fallback pool; a
// nil package after filtering is an expected outcome, not an error.
type Selector struct {
	source   TrendingSource
	fallback []string
	category string
	limit    int
	logger   *zap.Logger
}

func NewSelector(source TrendingSource, fallback []string, category string, limit int, logger *zap.Logger) *Selector {
	if limit <= 0 {
		limit = 20
	}
	return &Selector{
		source:   source,
		fallback: fallback,
		category: category,
		limit:    limit,
		logger:   logger,
	}
}

func (s *Selector) SelectTopic(ctx context.Context, ownerID uuid.UUID) (*TopicPackage, error) {
	keywords, source := s.candidateKeywords(ctx)

	filtered := filterKeywords(keywords)
	if len(filtered) == 0 {
		return nil, nil
	}

	primary := filtered[0]
	secondary := filtered[1:]
	if len(secondary) > maxSecondaryCount {
		secondary = secondary[:maxSecondaryCount]
	}

	return &TopicPackage{
		PrimaryKeyword:    primary,
		SecondaryKeywords: secondary,
		Category:          s.category,
		InternalLink:      "/blog/" + Slugify(primary),
		Source:            source,
	}, nil
}

func (s *Selector) candidateKeywords(ctx context.Context) ([]string, string) {
	if s.source != nil {
		keywords, err := s.source.TrendingKeywords(ctx, s.category, s.limit)
		if err != nil {
			s.logger.Warn("trending source unavailable, using fallback pool", zap.Error(err))
		} else if len(keywords) > 0 {
			if len(keywords) > s.limit {
				keywords = keywords[:s.limit]
			}
			return keywords, topicSourceTrending
		}
	}
	return s.fallback, topicSourceFallback
}

// filterKeywords normalizes, deduplicates, and drops terms outside the
// usable length band, preserving the incoming rank order.
func filterKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	filtered := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		normalized := strings.ToLower(strings.Join(strings.Fields(keyword), " "))
		if len(normalized) < minKeywordLength || len(normalized) > maxKeywordLength {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		filtered = append(filtered, normalized)
	}

	return filtered
}

// Slugify converts a keyword into a URL path segment.
func Slugify(keyword string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(keyword) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
