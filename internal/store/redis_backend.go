package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey 드로잉 문서 키
const DefaultRedisKey = "canvas:drawings"

// RedisBackend Redis/Valkey 문자열 키 하나에 문서를 저장하는 백엔드
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend 이미 연결된 클라이언트로 백엔드 생성
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// Name 백엔드 이름
func (b *RedisBackend) Name() string {
	return "redis:" + b.key
}

// Read 문서 조회
func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", b.key, err)
	}
	return data, nil
}

// Write 문서 저장 (만료 없음, 크기 제한은 저장소가 관리)
func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", b.key, err)
	}
	return nil
}

// Ping Redis 상태 확인
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
