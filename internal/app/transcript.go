package app

import (
	"slices"
	"sync"

	"ragc/internal/domain"
)

// Transcript is the append-only chat log.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

func NewTranscript() *Transcript { return &Transcript{} }

func (t *Transcript) Append(msgs ...domain.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

func (t *Transcript) Messages() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the newest message, if any.
func (t *Transcript) Last() (domain.ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return domain.ChatMessage{}, false
	}
	return t.messages[len(t.messages)-1], true
}
