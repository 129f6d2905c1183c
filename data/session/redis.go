package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dharness/stock-tracker/config"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found")

type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func sessionKey(key string) string {
	return "session:" + key
}

func (s *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.Get(ctx, sessionKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.Session{}, err
	}

	chatSession := model.Session{}
	err = json.Unmarshal([]byte(res), &chatSession)
	if err != nil {
		slog.Error("can't unmarshall session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("resultFromRedis", res))
		return model.Session{}, errors.New("can't unmarshall session")
	}

	return chatSession, nil
}

func (s *RedisSession) SetSession(ctx context.Context, key string, chatSession model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	sessionJson, err := json.Marshal(chatSession)
	if err != nil {
		slog.Error("can't marshall session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall session")
	}

	_, err = s.redis.Set(ctx, sessionKey(key), sessionJson, s.cfg.SessionExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}
