package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Answer hashes outlive any realistic pause but not forgotten sessions.
const answerTTL = 24 * time.Hour

// AnswerCache is the redis-backed fast path for autosaved answers. The
// relational store stays the system of record; the cache may only be
// fresher than the last durable write, never more authoritative about
// session structure.
type AnswerCache struct {
	rdb *redis.Client
}

// NewAnswerCache creates a redis answer cache.
func NewAnswerCache(rdb *redis.Client) *AnswerCache {
	return &AnswerCache{rdb: rdb}
}

// SaveAnswers writes the full answer map as a hash, replacing any
// previous content so removed entries do not linger.
func (c *AnswerCache) SaveAnswers(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	key := attemptAnswersKey(attemptID)

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(answers) > 0 {
		fields := make(map[string]string, len(answers))
		for qid, optionKey := range answers {
			fields[qid.String()] = optionKey
		}
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, answerTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// LoadAnswers reads the cached answer hash. A missing key yields an
// empty map, not an error.
func (c *AnswerCache) LoadAnswers(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error) {
	fields, err := c.rdb.HGetAll(ctx, attemptAnswersKey(attemptID)).Result()
	if err != nil {
		return nil, err
	}

	answers := make(map[uuid.UUID]string, len(fields))
	for field, optionKey := range fields {
		qid, err := uuid.Parse(field)
		if err != nil {
			return nil, fmt.Errorf("invalid question id %q in cache: %w", field, err)
		}
		answers[qid] = optionKey
	}
	return answers, nil
}

// ClearAnswers drops the cached hash once the attempt is completed.
func (c *AnswerCache) ClearAnswers(ctx context.Context, attemptID uuid.UUID) error {
	return c.rdb.Del(ctx, attemptAnswersKey(attemptID)).Err()
}
