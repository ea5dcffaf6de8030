// Package chatlog stores one append-only, ordered message log per meeting.
//
// Append order is authoritative: readers get messages back in the order they
// were appended regardless of their timestamps.
package chatlog

import (
	"context"
	"log/slog"
)

// Message is a single immutable chat entry.
type Message struct {
	SenderEmail string `cbor:"email" json:"email"`
	Body        string `cbor:"message" json:"message"`
	TimestampMs int64  `cbor:"timestamp" json:"timestamp"`
}

// Log is implemented by the in-memory and Redis chat logs.
type Log interface {
	// Append adds msg to the end of the meeting's log, creating the log on
	// first use.
	Append(ctx context.Context, meetingID string, msg Message) error
	// Messages returns the whole log in append order. A meeting without a
	// log yields an empty slice.
	Messages(ctx context.Context, meetingID string) ([]Message, error)
	// Delete drops the meeting's log.
	Delete(ctx context.Context, meetingID string) error
}

// FilterBySender keeps the messages sent by email, preserving order.
func FilterBySender(messages []Message, email string) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.SenderEmail == email {
			out = append(out, msg)
		}
	}
	return out
}

// decodeAll decodes raw entries, skipping and logging the ones that fail.
func decodeAll(logger *slog.Logger, meetingID string, entries [][]byte) []Message {
	out := make([]Message, 0, len(entries))
	for i, raw := range entries {
		msg, err := decodeMessage(raw)
		if err != nil {
			logger.Warn("skipping undecodable chat entry", "meeting_id", meetingID, "index", i, "error", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}
