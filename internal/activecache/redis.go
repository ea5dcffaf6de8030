package activecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "active_meeting"
	defaultRedisRetries   = 16
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each active meeting as one CBOR value under
// "<prefix>:<id>" and tracks ids in the set "<prefix>". Mutations use
// WATCH/MULTI so a write based on a stale read is rejected by the server
// and retried.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	logger     *slog.Logger
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithMaxRetries bounds how many optimistic transaction attempts are made.
func WithMaxRetries(n int) RedisStoreOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithLogger sets the logger used to report undecodable records.
func WithLogger(logger *slog.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisKeyPrefix, maxRetries: defaultRedisRetries, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// redisRecord is the stored form of an ActiveMeeting. Sets are written as
// sorted arrays so equal meetings encode to equal bytes.
type redisRecord struct {
	ID          string   `cbor:"id"`
	Title       string   `cbor:"title"`
	Description string   `cbor:"description"`
	StartMs     int64    `cbor:"start_ms"`
	EndMs       int64    `cbor:"end_ms"`
	Latitude    float64  `cbor:"latitude"`
	Longitude   float64  `cbor:"longitude"`
	Invited     []string `cbor:"invited"`
	Joined      []string `cbor:"joined"`
}

var recordEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("activecache: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

func encodeMeeting(m ActiveMeeting) ([]byte, error) {
	return recordEncMode.Marshal(redisRecord{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		StartMs:     m.StartMs,
		EndMs:       m.EndMs,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Invited:     m.InvitedList(),
		Joined:      m.JoinedList(),
	})
}

func decodeMeeting(data []byte) (ActiveMeeting, error) {
	var rec redisRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return ActiveMeeting{}, fmt.Errorf("activecache: decode meeting: %w", err)
	}
	m := NewActiveMeeting(rec.ID, rec.Invited)
	m.Title = rec.Title
	m.Description = rec.Description
	m.StartMs = rec.StartMs
	m.EndMs = rec.EndMs
	m.Latitude = rec.Latitude
	m.Longitude = rec.Longitude
	for _, email := range rec.Joined {
		m.Joined[email] = struct{}{}
	}
	return m, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

// transact runs fn inside WATCH on key, retrying when another client
// modified the key between the read and the EXEC.
func (s *RedisStore) transact(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// Insert writes the meeting and adds its id to the index set unless the key
// already exists.
func (s *RedisStore) Insert(ctx context.Context, meeting ActiveMeeting) (bool, error) {
	data, err := encodeMeeting(meeting)
	if err != nil {
		return false, err
	}
	key := s.key(meeting.ID)
	inserted := false
	err = s.transact(ctx, key, func(tx *redis.Tx) error {
		inserted = false
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.prefix, meeting.ID)
			return nil
		})
		if err == nil {
			inserted = true
		}
		return err
	})
	return inserted, err
}

// Get loads the meeting stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (ActiveMeeting, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ActiveMeeting{}, ErrNotFound
	}
	if err != nil {
		return ActiveMeeting{}, err
	}
	return decodeMeeting(data)
}

// Update applies fn to the stored meeting inside a WATCH transaction. A
// concurrent write to the key restarts the attempt.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*ActiveMeeting) error) (ActiveMeeting, error) {
	key := s.key(id)
	var updated ActiveMeeting
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeMeeting(data)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		current.ID = id
		encoded, err := encodeMeeting(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = current
		}
		return err
	})
	if err != nil {
		return ActiveMeeting{}, err
	}
	return updated, nil
}

// Delete removes the meeting and its index entry in one transaction.
func (s *RedisStore) Delete(ctx context.Context, id string) (ActiveMeeting, error) {
	key := s.key(id)
	var removed ActiveMeeting
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeMeeting(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.prefix, id)
			return nil
		})
		if err == nil {
			removed = current
		}
		return err
	})
	if err != nil {
		return ActiveMeeting{}, err
	}
	return removed, nil
}

// IDs returns the active meeting ids in ascending order.
func (s *RedisStore) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.prefix).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// List fetches every meeting in one MGET. Ids whose value vanished between
// SMEMBERS and MGET are skipped, as are records that fail to decode.
func (s *RedisStore) List(ctx context.Context) ([]ActiveMeeting, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []ActiveMeeting{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ActiveMeeting, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		m, err := decodeMeeting([]byte(raw))
		if err != nil {
			s.logger.Warn("skipping undecodable active meeting", "meeting_id", ids[i], "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
