package chatlog

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "chat"

var _ Log = (*RedisLog)(nil)

// RedisLog stores each meeting's log as a Redis list at "<prefix>:<id>".
type RedisLog struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisLog wraps an existing client. An empty prefix selects "chat".
func NewRedisLog(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisLog {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLog{client: client, prefix: prefix, logger: logger}
}

func (l *RedisLog) key(meetingID string) string {
	return l.prefix + ":" + meetingID
}

// Append pushes the encoded message onto the tail of the meeting's list.
func (l *RedisLog) Append(ctx context.Context, meetingID string, msg Message) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return l.client.RPush(ctx, l.key(meetingID), data).Err()
}

// Messages reads the whole list and decodes it in append order.
func (l *RedisLog) Messages(ctx context.Context, meetingID string) ([]Message, error) {
	values, err := l.client.LRange(ctx, l.key(meetingID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([][]byte, len(values))
	for i, v := range values {
		entries[i] = []byte(v)
	}
	return decodeAll(l.logger, meetingID, entries), nil
}

// Delete removes the meeting's list.
func (l *RedisLog) Delete(ctx context.Context, meetingID string) error {
	return l.client.Del(ctx, l.key(meetingID)).Err()
}
