package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/waypoint/pkg/api"
)

// RedisStateStore is a StateStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<flowID>   => JSON-encoded redisRunningFlow
//	<prefix>idx:running    => SET of running flow ids
//	<prefix>seen           => HASH flow id -> seen time (unix nanoseconds)
//
// The running index is best-effort; ListRunningFlows skips ids whose payload
// has disappeared.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

var _ StateStore = (*RedisStateStore)(nil)

type redisRunningFlow struct {
	History   json.RawMessage `json:"history"`
	UpdatedAt int64           `json:"updatedAt"`
}

// NewRedisStateStore creates a RedisStateStore.
// prefix is optional but recommended (e.g. "waypoint:<user>:").
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = "waypoint:"
	}
	return &RedisStateStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStateStore) keyRunning(flowID string) string {
	return s.prefix + "run:" + flowID
}

func (s *RedisStateStore) keyRunningIndex() string {
	return s.prefix + "idx:running"
}

func (s *RedisStateStore) keySeen() string {
	return s.prefix + "seen"
}

func (s *RedisStateStore) SaveRunningFlow(ctx context.Context, flowID string, history api.History) error {
	h, err := EncodeHistory(history)
	if err != nil {
		return err
	}
	data, err := json.Marshal(redisRunningFlow{History: h, UpdatedAt: time.Now().UnixNano()})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRunning(flowID), data, 0)
	pipe.SAdd(ctx, s.keyRunningIndex(), flowID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStateStore) GetRunningFlow(ctx context.Context, flowID string) (RunningFlow, error) {
	data, err := s.client.Get(ctx, s.keyRunning(flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RunningFlow{}, ErrRunningFlowNotFound
		}
		return RunningFlow{}, err
	}
	return decodeRedisRunningFlow(flowID, data)
}

func decodeRedisRunningFlow(flowID string, data []byte) (RunningFlow, error) {
	var payload redisRunningFlow
	if err := json.Unmarshal(data, &payload); err != nil {
		return RunningFlow{}, err
	}
	h, err := DecodeHistory(payload.History)
	if err != nil {
		return RunningFlow{}, err
	}
	return RunningFlow{FlowID: flowID, History: h, UpdatedAt: time.Unix(0, payload.UpdatedAt)}, nil
}

func (s *RedisStateStore) ListRunningFlows(ctx context.Context) ([]RunningFlow, error) {
	ids, err := s.client.SMembers(ctx, s.keyRunningIndex()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	out := make([]RunningFlow, 0, len(ids))
	for _, id := range ids {
		rf, err := s.GetRunningFlow(ctx, id)
		if errors.Is(err, ErrRunningFlowNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func (s *RedisStateStore) RemoveRunningFlow(ctx context.Context, flowID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyRunning(flowID))
	pipe.SRem(ctx, s.keyRunningIndex(), flowID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStateStore) MarkSeen(ctx context.Context, flowID string, at time.Time) error {
	return s.client.HSet(ctx, s.keySeen(), flowID, strconv.FormatInt(at.UnixNano(), 10)).Err()
}

func (s *RedisStateStore) SeenFlows(ctx context.Context) (map[string]time.Time, error) {
	raw, err := s.client.HGetAll(ctx, s.keySeen()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		out[id] = time.Unix(0, n)
	}
	return out, nil
}

func (s *RedisStateStore) ForgetSeen(ctx context.Context, flowID string) error {
	return s.client.HDel(ctx, s.keySeen(), flowID).Err()
}
