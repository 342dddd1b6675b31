package provider

import (
	"context"
	"encoding/json"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the go-openai client this provider needs.
// Narrow interface for testability.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SDKProvider implements Provider over the go-openai SDK client. Useful for
// OpenAI-compatible endpoints the SDK already knows how to talk to.
type SDKProvider struct {
	client ChatCompleter
}

func init() {
	RegisterFactory("openai-sdk", func(config map[string]any) (Provider, error) {
		apiKey, _ := config["api_key"].(string)
		if apiKey == "" {
			return nil, errors.New("api_key not set")
		}
		if baseURL, ok := config["base_url"].(string); ok && baseURL != "" {
			cc := openai.DefaultConfig(apiKey)
			cc.BaseURL = baseURL
			return NewSDKProvider(openai.NewClientWithConfig(cc)), nil
		}
		return NewSDKProvider(openai.NewClient(apiKey)), nil
	})
}

// NewSDKProvider creates a provider backed by a go-openai client
func NewSDKProvider(client ChatCompleter) *SDKProvider {
	return &SDKProvider{client: client}
}

// Name returns the provider name
func (p *SDKProvider) Name() string {
	return "openai-sdk"
}

// CreateStructured creates a structured response via the SDK
func (p *SDKProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	sdkReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}

	if len(req.ResponseSchema) > 0 {
		sdkReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: json.RawMessage(req.ResponseSchema),
				Strict: req.StrictSchema,
			},
		}
	} else {
		sdkReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, sdkReq)
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewProviderError("openai-sdk", ErrorCodeUnknown, "no choices in response", nil)
	}

	choice := resp.Choices[0]
	return &StructuredResponse{
		Data:         json.RawMessage(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// wrapError converts go-openai errors to ProviderError
func (p *SDKProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ErrorCodeUnknown
		switch apiErr.HTTPStatusCode {
		case 401:
			code = ErrorCodeAuthentication
		case 429:
			code = ErrorCodeRateLimit
		case 400:
			code = ErrorCodeInvalidRequest
		case 404:
			code = ErrorCodeModelNotFound
		default:
			if apiErr.HTTPStatusCode >= 500 {
				code = ErrorCodeServerError
			}
		}
		return &ProviderError{
			Provider:      "openai-sdk",
			Code:          code,
			Message:       apiErr.Message,
			StatusCode:    apiErr.HTTPStatusCode,
			IsRetryable:   isRetryableCode(code),
			OriginalError: err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError("openai-sdk", ErrorCodeTimeout, err.Error(), err)
	}
	return NewProviderError("openai-sdk", ErrorCodeServerError, err.Error(), err)
}
