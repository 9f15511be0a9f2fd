// Package prompt turns a room's system instruction and conversation log into
// the ordered message list sent to the completion endpoint.
package prompt

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/chatrooms/internal/chat"
)

// MappingError reports a log entry whose sender has no completion role.
// A well-formed log never produces one.
type MappingError struct {
	Index  int
	Sender chat.Sender
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("prompt: message %d has unrecognized sender %q", e.Index, e.Sender)
}

// Role maps a sender to its chat completion role.
func Role(s chat.Sender) (string, bool) {
	switch s {
	case chat.SenderUser:
		return openai.ChatMessageRoleUser, true
	case chat.SenderAI:
		return openai.ChatMessageRoleAssistant, true
	default:
		return "", false
	}
}

// Build returns the system instruction, every message of log in order, and
// finally userText as a user turn. Nothing is truncated or reordered.
func Build(systemPrompt string, log []chat.Message, userText string) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(log)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for i, m := range log {
		role, ok := Role(m.Sender)
		if !ok {
			return nil, &MappingError{Index: i, Sender: m.Sender}
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})
	return messages, nil
}
