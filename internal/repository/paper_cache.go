package repository

import (
	"ai_exam_backend/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 缓存键前缀与过期时间。共享试题、访问码映射和答题记录是"一次写入、
// 多天读取"的数据，用长 TTL；会话级生成的试卷只是临时中转，用短 TTL。
// 每次命中读取都会刷新过期时间（滑动过期）。
const (
	sharedPaperKeyPrefix   = "SHARED_PAPER"
	accessCodeMapKeyPrefix = "ACCESS_CODE_MAP"
	userAnswerKeyPrefix    = "USER_ANSWER"
	paperGenerateKeyPrefix = "PAPER_GENERATE"

	SharedPaperTTL   = 7 * 24 * time.Hour
	PaperGenerateTTL = 24 * time.Hour
)

// PaperCache 试题相关数据的 Redis 缓存层，值为 JSON 序列化后的字符串
type PaperCache struct {
	Redis *redis.Client
}

func NewPaperCache(rdb *redis.Client) *PaperCache {
	return &PaperCache{Redis: rdb}
}

func sharedPaperKey(paperID string) string {
	return fmt.Sprintf("%s:%s", sharedPaperKeyPrefix, paperID)
}

func accessCodeMapKey(accessCode string) string {
	return fmt.Sprintf("%s:%s", accessCodeMapKeyPrefix, accessCode)
}

func userAnswerKey(paperID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", userAnswerKeyPrefix, paperID, userID)
}

func paperGenerateKey(userID, chatID string) string {
	return fmt.Sprintf("%s:%s:%s", paperGenerateKeyPrefix, userID, chatID)
}

func (c *PaperCache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, key, data, ttl).Err()
}

// getJSON 读取并反序列化缓存值，命中时刷新 TTL；未命中返回 (false, nil)
func (c *PaperCache) getJSON(ctx context.Context, key string, dest interface{}, ttl time.Duration) (bool, error) {
	data, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}

	c.Redis.Expire(ctx, key, ttl)
	return true, nil
}

func (c *PaperCache) SaveSharedPaper(ctx context.Context, paper *model.CachedPaper) error {
	return c.setJSON(ctx, sharedPaperKey(paper.PaperID), paper, SharedPaperTTL)
}

func (c *PaperCache) GetSharedPaper(ctx context.Context, paperID string) (*model.CachedPaper, error) {
	var paper model.CachedPaper
	found, err := c.getJSON(ctx, sharedPaperKey(paperID), &paper, SharedPaperTTL)
	if err != nil || !found {
		return nil, err
	}
	return &paper, nil
}

func (c *PaperCache) DeleteSharedPaper(ctx context.Context, paperID string) error {
	return c.Redis.Del(ctx, sharedPaperKey(paperID)).Err()
}

func (c *PaperCache) SaveAccessCodeMapping(ctx context.Context, accessCode, paperID string) error {
	return c.Redis.Set(ctx, accessCodeMapKey(accessCode), paperID, SharedPaperTTL).Err()
}

// GetPaperIDByAccessCode 访问码到试题ID的映射查询，命中时同样滑动续期
func (c *PaperCache) GetPaperIDByAccessCode(ctx context.Context, accessCode string) (string, error) {
	key := accessCodeMapKey(accessCode)
	paperID, err := c.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	c.Redis.Expire(ctx, key, SharedPaperTTL)
	return paperID, nil
}

func (c *PaperCache) DeleteAccessCodeMapping(ctx context.Context, accessCode string) error {
	return c.Redis.Del(ctx, accessCodeMapKey(accessCode)).Err()
}

func (c *PaperCache) SaveUserAnswer(ctx context.Context, paperID, userID string, result *model.CachedResult) error {
	return c.setJSON(ctx, userAnswerKey(paperID, userID), result, SharedPaperTTL)
}

func (c *PaperCache) GetUserAnswer(ctx context.Context, paperID, userID string) (*model.CachedResult, error) {
	var result model.CachedResult
	found, err := c.getJSON(ctx, userAnswerKey(paperID, userID), &result, SharedPaperTTL)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

func (c *PaperCache) DeleteUserAnswers(ctx context.Context, paperID string) error {
	pattern := fmt.Sprintf("%s:%s:*", userAnswerKeyPrefix, paperID)
	iter := c.Redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.Redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *PaperCache) SaveGeneratedPaper(ctx context.Context, userID, chatID string, data *model.CachedGeneration) error {
	return c.setJSON(ctx, paperGenerateKey(userID, chatID), data, PaperGenerateTTL)
}

func (c *PaperCache) GetGeneratedPaper(ctx context.Context, userID, chatID string) (*model.CachedGeneration, error) {
	var data model.CachedGeneration
	found, err := c.getJSON(ctx, paperGenerateKey(userID, chatID), &data, PaperGenerateTTL)
	if err != nil || !found {
		return nil, err
	}
	return &data, nil
}
