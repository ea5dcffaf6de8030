package chatlog

import (
	"context"
	"log/slog"
	"sync"
)

var _ Log = (*MemoryLog)(nil)

// MemoryLog keeps encoded entries in process memory.
type MemoryLog struct {
	mu     sync.RWMutex
	logs   map[string][][]byte
	logger *slog.Logger
}

// NewMemoryLog returns an empty log. A nil logger falls back to slog.Default.
func NewMemoryLog(logger *slog.Logger) *MemoryLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryLog{logs: make(map[string][][]byte), logger: logger}
}

// Append encodes msg and adds it to the end of the meeting's log.
func (l *MemoryLog) Append(ctx context.Context, meetingID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	l.appendRaw(meetingID, data)
	return nil
}

func (l *MemoryLog) appendRaw(meetingID string, data []byte) {
	l.mu.Lock()
	l.logs[meetingID] = append(l.logs[meetingID], data)
	l.mu.Unlock()
}

// Messages decodes the meeting's log in append order.
func (l *MemoryLog) Messages(ctx context.Context, meetingID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	entries := append([][]byte(nil), l.logs[meetingID]...)
	l.mu.RUnlock()
	return decodeAll(l.logger, meetingID, entries), nil
}

// Delete drops the meeting's log.
func (l *MemoryLog) Delete(ctx context.Context, meetingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.logs, meetingID)
	l.mu.Unlock()
	return nil
}
