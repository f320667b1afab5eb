package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

const completionTimeout = 30 * time.Second

// openaiRepo implements the completion repository on any OpenAI-compatible
// endpoint. Credentials and base URL travel with each call because every
// responder configuration may point at a different provider.
type openaiRepo struct{}

// NewCompletionRepo creates the completion repository
func NewCompletionRepo() repo.CompletionRepo {
	return &openaiRepo{}
}

// Complete issues one chat completion and returns the reply text
func (r *openaiRepo) Complete(ctx context.Context, msgs []repo.ChatMessage, settings domain.CompletionSettings) (string, error) {
	if !settings.Ready() {
		return "", fmt.Errorf("completion settings missing model or api key")
	}

	config := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = settings.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	req := openai.ChatCompletionRequest{
		Model:       settings.Model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: settings.Temperature,
		TopP:        settings.TopP,
		MaxTokens:   settings.MaxTokens,
	}
	if ws := settings.WebSearch; ws != nil && ws.Enabled {
		req.WebSearchOptions = &openai.WebSearchOptions{
			SearchContextSize: ws.ContextSize,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// toOpenAIMessages converts provider-bound turns. Text-only turns use the
// plain content field; turns carrying images become multi-part content.
func toOpenAIMessages(msgs []repo.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if !hasImage(m) {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.PlainText()})
			continue
		}
		var parts []openai.ChatMessagePart
		for _, seg := range m.Parts {
			switch seg.Type {
			case domain.SegmentImage:
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: seg.URL},
				})
			default:
				if t := seg.Placeholder(); t != "" {
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: t,
					})
				}
			}
		}
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}

func hasImage(m repo.ChatMessage) bool {
	for _, seg := range m.Parts {
		if seg.Type == domain.SegmentImage {
			return true
		}
	}
	return false
}
