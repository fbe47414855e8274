// Package memory bounds the message history fed to a model.
//
// The agent loop appends tool-result messages mid-conversation, so the
// policy is applied on every loop iteration, not just once per send. All
// policies trim from the oldest end and never reorder; the third policy
// additionally protects system messages wherever they sit.
//
// A Store instance is owned by exactly one in-flight send. It is not safe
// for concurrent mutation and does not need to be.
package memory

import "chathub/chat"

// Store maintains the ordered message history supplied to the model.
type Store interface {
	// Append adds a message to the end of the history.
	Append(msg chat.Message)

	// Snapshot returns the policy-trimmed history as an independent copy.
	// Calling Snapshot twice without an intervening Append returns equal
	// sequences.
	Snapshot() []chat.Message

	// Clear drops all messages.
	Clear()

	// Len reports how many messages the store currently holds after
	// policy trimming.
	Len() int
}

// Unbounded keeps every message, optionally bounded by a hard cap that
// drops the oldest non-system messages first.
type Unbounded struct {
	messages []chat.Message
	hardCap  int
}

// NewUnbounded creates an unbounded store. hardCap of 0 means no cap.
func NewUnbounded(hardCap int) *Unbounded {
	return &Unbounded{hardCap: hardCap}
}

func (u *Unbounded) Append(msg chat.Message) {
	u.messages = append(u.messages, msg)
	if u.hardCap > 0 && len(u.messages) > u.hardCap {
		u.messages = dropOldestNonSystem(u.messages, len(u.messages)-u.hardCap)
	}
}

func (u *Unbounded) Snapshot() []chat.Message { return copyMessages(u.messages) }
func (u *Unbounded) Clear()                   { u.messages = nil }
func (u *Unbounded) Len() int                 { return len(u.messages) }

// SlidingWindow keeps only the most recent N messages.
type SlidingWindow struct {
	messages []chat.Message
	window   int
}

// NewSlidingWindow creates a store retaining the last window messages.
func NewSlidingWindow(window int) *SlidingWindow {
	if window < 1 {
		window = 1
	}
	return &SlidingWindow{window: window}
}

func (s *SlidingWindow) Append(msg chat.Message) {
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.window {
		s.messages = s.messages[len(s.messages)-s.window:]
	}
}

func (s *SlidingWindow) Snapshot() []chat.Message { return copyMessages(s.messages) }
func (s *SlidingWindow) Clear()                   { s.messages = nil }
func (s *SlidingWindow) Len() int                 { return len(s.messages) }

// SystemPlusSliding keeps every system message regardless of position,
// plus the most recent N non-system messages.
type SystemPlusSliding struct {
	messages []chat.Message
	window   int
}

// NewSystemPlusSliding creates a store retaining all system messages and
// the last window non-system messages.
func NewSystemPlusSliding(window int) *SystemPlusSliding {
	if window < 1 {
		window = 1
	}
	return &SystemPlusSliding{window: window}
}

func (s *SystemPlusSliding) Append(msg chat.Message) {
	s.messages = append(s.messages, msg)

	nonSystem := 0
	for _, m := range s.messages {
		if m.Role != chat.RoleSystem {
			nonSystem++
		}
	}
	if nonSystem > s.window {
		s.messages = dropOldestNonSystem(s.messages, nonSystem-s.window)
	}
}

func (s *SystemPlusSliding) Snapshot() []chat.Message { return copyMessages(s.messages) }
func (s *SystemPlusSliding) Clear()                   { s.messages = nil }
func (s *SystemPlusSliding) Len() int                 { return len(s.messages) }

// dropOldestNonSystem removes the first n non-system messages, preserving
// the relative order of everything kept.
func dropOldestNonSystem(messages []chat.Message, n int) []chat.Message {
	out := make([]chat.Message, 0, len(messages)-n)
	for _, m := range messages {
		if n > 0 && m.Role != chat.RoleSystem {
			n--
			continue
		}
		out = append(out, m)
	}
	return out
}

func copyMessages(messages []chat.Message) []chat.Message {
	out := make([]chat.Message, len(messages))
	copy(out, messages)
	return out
}
