package notification

import (
	"log"
	"sync"
	"time"

	"github.com/example/storefront/internal/checkout"
)

// Message is one user-facing toast.
type Message struct {
	Text string        `json:"message"`
	Kind checkout.Kind `json:"type"`
	At   time.Time     `json:"at"`
}

// LogSink writes every message to the process log.
type LogSink struct {
	Prefix string
}

func (s LogSink) Notify(message string, kind checkout.Kind) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "[Toast]"
	}
	log.Printf("%s %s: %s", prefix, kind, message)
}

const DefaultFeedSize = 20

// Feed keeps the most recent messages of one session so a client can poll them.
type Feed struct {
	mu    sync.Mutex
	limit int
	msgs  []Message
	now   func() time.Time
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Notify(message string, kind checkout.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, Message{Text: message, Kind: kind, At: f.now()})
	if over := len(f.msgs) - f.limit; over > 0 {
		f.msgs = append([]Message(nil), f.msgs[over:]...)
	}
}

// Recent returns the buffered messages, oldest first.
func (f *Feed) Recent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

// Drain returns the buffered messages and empties the feed.
func (f *Feed) Drain() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.msgs
	f.msgs = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

// Multi fans a message out to several sinks.
type Multi []checkout.Notifier

func (m Multi) Notify(message string, kind checkout.Kind) {
	for _, n := range m {
		n.Notify(message, kind)
	}
}
