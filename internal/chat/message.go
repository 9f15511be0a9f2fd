package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender tags who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is a single conversational turn. It is never modified after it is
// appended to a session log.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a time-ordered UUIDv7 id.
func NewMessage(sender Sender, content string, at time.Time) Message {
	return Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
}
