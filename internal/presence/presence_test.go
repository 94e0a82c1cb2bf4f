package presence

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTracker(t *testing.T) {
	ctx := context.Background()
	tr := NewLocalTracker()

	require.NoError(t, tr.Join(ctx, "a"))
	require.NoError(t, tr.Join(ctx, "b"))
	require.NoError(t, tr.Join(ctx, "a"))

	n, err := tr.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, tr.Leave(ctx, "a"))
	require.NoError(t, tr.Leave(ctx, "missing"))

	n, err = tr.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLocalTracker_SatisfiesTracker(t *testing.T) {
	var _ Tracker = NewLocalTracker()
	var _ Tracker = (*RedisTracker)(nil)
}

var errRedisDown = errors.New("redis down")

// scriptedRedis 서버 없이 명령에 응답하는 go-redis hook
type scriptedRedis struct {
	keys     []string
	scardErr error
}

func (h *scriptedRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errRedisDown
	}
}

func (h *scriptedRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch c := cmd.(type) {
		case *redis.ScanCmd:
			c.SetVal(h.keys, 0)
			return nil
		case *redis.IntCmd:
			if h.scardErr != nil {
				c.SetErr(h.scardErr)
				return h.scardErr
			}
			c.SetVal(3)
			return nil
		}
		return nil
	}
}

func (h *scriptedRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return nil
	}
}

func newScriptedTracker(h *scriptedRedis) *RedisTracker {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(h)
	return NewRedisTracker(client)
}

func TestRedisTracker_CountSumsInstances(t *testing.T) {
	ctx := context.Background()
	tr := newScriptedTracker(&scriptedRedis{keys: []string{"canvas:online:a", "canvas:online:b"}})

	n, err := tr.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestRedisTracker_CountReportsSCardFailure(t *testing.T) {
	ctx := context.Background()
	tr := newScriptedTracker(&scriptedRedis{
		keys:     []string{"canvas:online:a"},
		scardErr: errRedisDown,
	})
	require.NoError(t, tr.Join(ctx, "conn-1"))

	// 로컬 수는 돌려주되 에러도 함께 알린다
	n, err := tr.Count(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRedisDown)
	assert.Equal(t, int64(1), n)
}
