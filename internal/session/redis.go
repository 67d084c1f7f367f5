package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/flightassist/internal/models"
)

const keyPrefix = "session:"

// RedisStore shares sessions across server instances. Entries expire TTL
// after their last write.
type RedisStore struct {
	client       *redis.Client
	ttl          time.Duration
	historyLimit int
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	HistoryLimit int
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         "6379",
		Password:     "",
		DB:           0,
		TTL:          24 * time.Hour,
		HistoryLimit: DefaultHistoryLimit,
	}
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{
		client:       client,
		ttl:          cfg.TTL,
		historyLimit: cfg.HistoryLimit,
	}, nil
}

func (r *RedisStore) Create(ctx context.Context) (*Session, error) {
	s := New("", time.Now())
	if err := r.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.History == nil {
		s.History = []models.Message{}
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	c := s.Clone()
	c.trim(r.historyLimit)
	c.UpdatedAt = time.Now()

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+c.ID, data, r.ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
