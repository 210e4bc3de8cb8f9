package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const knowledgeKeyPrefix = "kb:docs:"
const knowledgeVersionKeyPrefix = "kb:docs:ver:"

// KnowledgeRepository persists corpus knowledge documents.
type KnowledgeRepository interface {
	AppendDocuments(ctx context.Context, corpusID string, docs []Document) error
	GetDocuments(ctx context.Context, corpusID string) ([]Document, error)
	LoadAll(ctx context.Context) (map[string][]Document, error)
}

// KnowledgeReplacer replaces corpus knowledge documents.
type KnowledgeReplacer interface {
	ReplaceDocuments(ctx context.Context, corpusID string, docs []Document) error
}

// KnowledgeVersioner tracks knowledge versions per corpus. A version bump
// signals retrievers to re-hydrate from scratch.
type KnowledgeVersioner interface {
	GetVersion(ctx context.Context, corpusID string) (int64, error)
	SetVersion(ctx context.Context, corpusID string, version int64) error
}

// RedisKnowledgeRepository stores JSON-encoded documents in Redis lists.
type RedisKnowledgeRepository struct {
	client *redis.Client
}

func NewRedisKnowledgeRepository(client *redis.Client) *RedisKnowledgeRepository {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisKnowledgeRepository{client: client}
}

// AppendDocuments pushes new documents onto the corpus list.
func (r *RedisKnowledgeRepository) AppendDocuments(ctx context.Context, corpusID string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		encoded, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("conversation: encode knowledge document: %w", err)
		}
		args = append(args, encoded)
	}
	if err := r.client.RPush(ctx, knowledgeKey(corpusID), args...).Err(); err != nil {
		return fmt.Errorf("conversation: failed to push knowledge: %w", err)
	}
	return nil
}

// ReplaceDocuments overwrites all documents for the corpus in one
// transaction.
func (r *RedisKnowledgeRepository) ReplaceDocuments(ctx context.Context, corpusID string, docs []Document) error {
	key := knowledgeKey(corpusID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(docs) > 0 {
		args := make([]interface{}, 0, len(docs))
		for _, d := range docs {
			encoded, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("conversation: encode knowledge document: %w", err)
			}
			args = append(args, encoded)
		}
		pipe.RPush(ctx, key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: failed to replace knowledge: %w", err)
	}
	return nil
}

// GetDocuments retrieves all documents for the corpus.
func (r *RedisKnowledgeRepository) GetDocuments(ctx context.Context, corpusID string) ([]Document, error) {
	raw, err := r.client.LRange(ctx, knowledgeKey(corpusID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conversation: fetch knowledge %s: %w", corpusID, err)
	}
	return decodeDocuments(raw)
}

// GetVersion retrieves the version for the corpus knowledge.
func (r *RedisKnowledgeRepository) GetVersion(ctx context.Context, corpusID string) (int64, error) {
	val, err := r.client.Get(ctx, knowledgeVersionKey(corpusID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("conversation: get knowledge version: %w", err)
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("conversation: parse knowledge version: %w", err)
	}
	return version, nil
}

// SetVersion stores the version for the corpus knowledge.
func (r *RedisKnowledgeRepository) SetVersion(ctx context.Context, corpusID string, version int64) error {
	if err := r.client.Set(ctx, knowledgeVersionKey(corpusID), strconv.FormatInt(version, 10), 0).Err(); err != nil {
		return fmt.Errorf("conversation: set knowledge version: %w", err)
	}
	return nil
}

// LoadAll returns all documents keyed by corpusID.
func (r *RedisKnowledgeRepository) LoadAll(ctx context.Context) (map[string][]Document, error) {
	var cursor uint64
	result := make(map[string][]Document)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, knowledgeKeyPrefix+"*", 50).Result()
		if err != nil {
			return nil, fmt.Errorf("conversation: scan knowledge keys failed: %w", err)
		}
		for _, key := range keys {
			if strings.HasPrefix(key, knowledgeVersionKeyPrefix) {
				continue
			}
			corpusID := strings.TrimPrefix(key, knowledgeKeyPrefix)
			raw, err := r.client.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return nil, fmt.Errorf("conversation: fetch knowledge %s failed: %w", corpusID, err)
			}
			docs, err := decodeDocuments(raw)
			if err != nil {
				return nil, err
			}
			result[corpusID] = docs
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return result, nil
}

func decodeDocuments(raw []string) ([]Document, error) {
	docs := make([]Document, 0, len(raw))
	for _, item := range raw {
		var doc Document
		if err := json.Unmarshal([]byte(item), &doc); err != nil {
			return nil, fmt.Errorf("conversation: decode knowledge document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func knowledgeKey(corpusID string) string {
	return knowledgeKeyPrefix + corpusID
}

func knowledgeVersionKey(corpusID string) string {
	return knowledgeVersionKeyPrefix + corpusID
}
