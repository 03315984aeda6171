package markets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/venue"
	"github.com/mkarpov/opinion-mm/pkg/cache"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// topicIDPattern extracts the parent topic id from a venue market URL,
// e.g. https://app.opinion.trade/detail?topicId=1234&...
var topicIDPattern = regexp.MustCompile(`topicId=(\d+)`)

// ParseTopicID extracts the topic id from a market URL or a bare
// numeric reference.
func ParseTopicID(marketRef string) (int64, error) {
	trimmed := strings.TrimSpace(marketRef)
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return id, nil
	}
	match := topicIDPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 0, fmt.Errorf("invalid market reference %q: topicId not found", marketRef)
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid topicId in %q: %w", marketRef, err)
	}
	return id, nil
}

// Market is a fully resolved trading target: one outcome of a parent
// topic, with the token ids needed to quote and trade it.
type Market struct {
	ParentTopicID int64
	TopicID       int64
	TopicTitle    string
	OutcomeTitle  string
	YesTokenID    string
	NoTokenID     string
	QuestionID    string
	ConditionID   string
}

// Resolver turns market references and outcome names into Markets,
// caching topic metadata between lookups. Topic structure changes
// rarely, so a generous TTL is safe.
type Resolver struct {
	gateway venue.Gateway
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	Gateway venue.Gateway
	Cache   cache.Cache
	TTL     time.Duration
	Logger  *zap.Logger
}

// NewResolver creates a resolver. Cache may be nil to disable caching.
func NewResolver(cfg *ResolverConfig) *Resolver {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{
		gateway: cfg.Gateway,
		cache:   cfg.Cache,
		ttl:     ttl,
		logger:  cfg.Logger,
	}
}

// Topic fetches a parent topic, preferring the cache.
func (r *Resolver) Topic(ctx context.Context, topicID int64) (*types.Topic, error) {
	cacheKey := fmt.Sprintf("topic:%d", topicID)

	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if topic, ok := cached.(*types.Topic); ok {
				TopicCacheHitsTotal.Inc()
				return topic, nil
			}
		}
		TopicCacheMissesTotal.Inc()
	}

	topic, err := r.gateway.GetTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("fetch topic %d: %w", topicID, err)
	}

	if r.cache != nil {
		r.cache.Set(cacheKey, topic, r.ttl)
	}
	return topic, nil
}

// Resolve parses a market reference, fetches its topic and matches the
// named outcome. Matching is case-insensitive substring in either
// direction, so "Team A" matches "Will Team A win?" and vice versa.
func (r *Resolver) Resolve(ctx context.Context, marketRef, outcomeName string) (*Market, error) {
	parentID, err := ParseTopicID(marketRef)
	if err != nil {
		return nil, err
	}

	topic, err := r.Topic(ctx, parentID)
	if err != nil {
		return nil, err
	}

	outcome, err := FindOutcome(topic, outcomeName)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("market-resolved",
		zap.Int64("parent-topic-id", parentID),
		zap.Int64("topic-id", outcome.TopicID),
		zap.String("outcome", outcome.Title))

	return &Market{
		ParentTopicID: parentID,
		TopicID:       outcome.TopicID,
		TopicTitle:    topic.Title,
		OutcomeTitle:  outcome.Title,
		YesTokenID:    outcome.YesTokenID,
		NoTokenID:     outcome.NoTokenID,
		QuestionID:    outcome.QuestionID,
		ConditionID:   outcome.ConditionID,
	}, nil
}

// FindOutcome matches an outcome by title within a topic's children.
// The error lists the available titles so a mistyped name is easy to
// correct from task logs.
func FindOutcome(topic *types.Topic, outcomeName string) (*types.Outcome, error) {
	wanted := strings.ToLower(strings.TrimSpace(outcomeName))
	for i := range topic.ChildList {
		title := strings.ToLower(topic.ChildList[i].Title)
		if strings.Contains(title, wanted) || strings.Contains(wanted, title) {
			return &topic.ChildList[i], nil
		}
	}

	available := make([]string, 0, len(topic.ChildList))
	for _, child := range topic.ChildList {
		available = append(available, child.Title)
	}
	return nil, fmt.Errorf("outcome %q not found, available: %s", outcomeName, strings.Join(available, ", "))
}
