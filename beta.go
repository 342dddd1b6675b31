package quorum

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// Beta mirrors the beta surface of OpenAI-style SDKs so existing code
// can switch to parallel parsing by swapping the client. The chain
// client.Beta.Chat.Completions.Parse(...) runs the full pipeline.
type Beta struct {
	Chat *BetaChat
}

// BetaChat groups the chat endpoints of the compatibility facade
type BetaChat struct {
	Completions *BetaChatCompletions
}

// BetaChatCompletions exposes the parse endpoint
type BetaChatCompletions struct {
	client *Client
}

func newBeta(c *Client) *Beta {
	return &Beta{Chat: &BetaChat{Completions: &BetaChatCompletions{client: c}}}
}

// ParseRequest is the chat-completions shape of a parse call
type ParseRequest struct {
	Model    string
	Messages []openai.ChatCompletionMessage

	// ResponseFormat is the JSON Schema the parsed result must satisfy
	ResponseFormat json.RawMessage

	Temperature float64
	MaxTokens   int

	// PassReasoning asks each call to return its chain of thought
	// alongside the payload. The reasoning is logged and stripped
	// before parsing, so Parsed never contains it.
	PassReasoning bool
}

// ParsedChatCompletion is a chat-completion envelope whose first choice
// carries the parsed payload
type ParsedChatCompletion struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []ParsedChoice `json:"choices"`
}

// ParsedChoice is one completion choice
type ParsedChoice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason"`
	Message      ParsedMessage `json:"message"`
}

// ParsedMessage carries the raw content and the parsed payload
type ParsedMessage struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Parsed  json.RawMessage `json:"parsed"`
}

// Parse runs the parallel pipeline and wraps the final payload in a
// chat-completion envelope. Semantics are identical to Client.Parse.
func (b *BetaChatCompletions) Parse(ctx context.Context, req ParseRequest, opts ...CallOption) (*ParsedChatCompletion, error) {
	messages := make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = Message{Role: m.Role, Content: m.Content}
	}

	value, err := b.client.Parse(ctx, Request{
		Model:         req.Model,
		Messages:      messages,
		Schema:        req.ResponseFormat,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		PassReasoning: req.PassReasoning,
	}, opts...)
	if err != nil {
		return nil, err
	}

	return &ParsedChatCompletion{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []ParsedChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: ParsedMessage{
					Role:    "assistant",
					Content: string(value),
					Parsed:  value,
				},
			},
		},
	}, nil
}
