package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionStore 在 redis 中保存编辑器视图状态，重启后可继续上次的位置
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(cfg *config.RedisConfig) *SessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &SessionStore{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SessionKey 以数据集根目录的哈希作为会话键
func SessionKey(datasetRoot string) (string, error) {
	digest, err := utils.PathMD5(datasetRoot)
	if err != nil {
		return "", err
	}
	return "session:" + digest, nil
}

// GetState 读取会话状态，未命中时返回 nil
func (s *SessionStore) GetState(ctx context.Context, key string) (*model.EditorState, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var state model.EditorState
	if err := json.Unmarshal(data, &state); err != nil {
		utils.Logger.Error("failed to unmarshal editor state",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &state, nil
}

// SetState 保存会话状态
func (s *SessionStore) SetState(ctx context.Context, key string, state model.EditorState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// trackTimeout 限制回调在编辑器锁内等待 redis 的时间
const trackTimeout = 200 * time.Millisecond

// Tracker 返回一个回调，把状态写入 redis，失败只记录告警
func (s *SessionStore) Tracker(key string) func(model.EditorState) {
	return func(state model.EditorState) {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		if err := s.SetState(ctx, key, state); err != nil {
			utils.Logger.Warn("failed to save session", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
