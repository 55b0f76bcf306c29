package chat

import "context"

// Message is one turn of an assistant conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces an assistant reply for the conversation so far.
type Provider interface {
	Reply(ctx context.Context, messages []Message) (string, error)
}
