package translate

import "context"

// EchoProvider returns the input text unchanged. Grounded on the teacher's
// mock STT adapter's role as a deterministic test double for an external
// dependency, adapted here to the translation-provider interface.
type EchoProvider struct{}

// NewEchoProvider constructs an EchoProvider.
func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

// Translate returns text unchanged.
func (p *EchoProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

var _ Provider = (*EchoProvider)(nil)
