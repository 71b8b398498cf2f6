package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"translate-relay/internal/config"
)

// promptTemplate is the exact prompt shape the translation backend expects;
// source and target are reduced to their primary BCP-47 subtag before
// substitution.
const promptTemplate = "<<<source>>>%s<<<target>>>%s<<<text>>>%s"

// OpenAICompatProvider translates via an OpenAI-chat-completions-compatible
// HTTP endpoint (e.g. a vLLM deployment), reached through the openai-go SDK
// pointed at a custom base URL rather than api.openai.com.
type OpenAICompatProvider struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAICompatProvider constructs a provider targeting endpoint. An API
// key is not required by most self-hosted vLLM deployments, so the client
// carries a placeholder key the SDK requires non-empty but the server does
// not validate; deployments that do require one can put it in endpoint's
// authority or front the server with a reverse proxy that injects it.
func NewOpenAICompatProvider(endpoint, model string, maxTokens int) (*OpenAICompatProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("TRANSLATE_ENDPOINT is required for the openaicompat provider")
	}

	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(endpoint, "/")+"/v1"),
		option.WithAPIKey("unused"),
	)

	return &OpenAICompatProvider{
		client:    client,
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// Translate sends the source/target/text prompt to the chat-completions
// endpoint and returns the trimmed response content.
func (p *OpenAICompatProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == "" {
		return "", fmt.Errorf("source language is required for translation")
	}

	src := config.PrimarySubtag(sourceLang)
	tgt := config.PrimarySubtag(targetLang)
	prompt := fmt.Sprintf(promptTemplate, src, tgt, text)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(p.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("translation response had no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ Provider = (*OpenAICompatProvider)(nil)
