// Package translate defines the translation provider interface and its
// implementations: a deterministic echo provider for tests, and an
// OpenAI-chat-completions-compatible HTTP backend for production use.
package translate

import "context"

// Provider translates text from sourceLang to targetLang.
type Provider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
