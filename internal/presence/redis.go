package presence

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "canvas:online:"
	// 인스턴스 키 TTL (Heartbeat 는 TTL/2 마다)
	instanceTTL = 60 * time.Second
)

// RedisTracker 여러 서버 인스턴스가 접속자 수를 공유하는 Tracker
//
// 인스턴스마다 canvas:online:{instanceID} set 에 연결 ID 를 넣고 TTL 을
// 갱신한다. 인스턴스가 죽으면 TTL 만료로 자동 정리된다.
type RedisTracker struct {
	client     *redis.Client
	instanceID string
	local      *LocalTracker // Redis 실패 시 fallback
}

// NewRedisTracker 생성자
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{
		client:     client,
		instanceID: uuid.NewString(),
		local:      NewLocalTracker(),
	}
}

// InstanceID 이 서버 인스턴스의 ID
func (t *RedisTracker) InstanceID() string {
	return t.instanceID
}

func (t *RedisTracker) instanceKey() string {
	return keyPrefix + t.instanceID
}

// Join 연결 추가 (인스턴스 키 TTL 갱신)
func (t *RedisTracker) Join(ctx context.Context, connID string) error {
	_ = t.local.Join(ctx, connID)

	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, t.instanceKey(), connID)
	pipe.Expire(ctx, t.instanceKey(), instanceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence join: %w", err)
	}
	return nil
}

// Leave 연결 제거
func (t *RedisTracker) Leave(ctx context.Context, connID string) error {
	_ = t.local.Leave(ctx, connID)

	if err := t.client.SRem(ctx, t.instanceKey(), connID).Err(); err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	return nil
}

// Count 모든 인스턴스의 연결 수 합계 (Redis 실패 시 로컬 수)
func (t *RedisTracker) Count(ctx context.Context) (int64, error) {
	var total int64
	iter := t.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := t.client.SCard(ctx, iter.Val()).Result()
		if err != nil {
			local, _ := t.local.Count(ctx)
			return local, fmt.Errorf("presence count %s: %w", iter.Val(), err)
		}
		total += n
	}
	if err := iter.Err(); err != nil {
		local, _ := t.local.Count(ctx)
		return local, fmt.Errorf("presence count: %w", err)
	}
	return total, nil
}

// Heartbeat 인스턴스 키 TTL 갱신 (키가 없으면 로컬 목록으로 복구)
func (t *RedisTracker) Heartbeat(ctx context.Context) error {
	ok, err := t.client.Expire(ctx, t.instanceKey(), instanceTTL).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	t.local.mu.RLock()
	members := make([]any, 0, len(t.local.conns))
	for id := range t.local.conns {
		members = append(members, id)
	}
	t.local.mu.RUnlock()

	if len(members) == 0 {
		return nil
	}
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, t.instanceKey(), members...)
	pipe.Expire(ctx, t.instanceKey(), instanceTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Run ctx 가 끝날 때까지 주기적으로 Heartbeat
func (t *RedisTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(instanceTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			t.client.Del(cleanupCtx, t.instanceKey())
			cancel()
			return
		case <-ticker.C:
			if err := t.Heartbeat(ctx); err != nil {
				log.Printf("[Presence] Heartbeat failed: %v", err)
			}
		}
	}
}

// Ping Redis 상태 확인
func (t *RedisTracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}
