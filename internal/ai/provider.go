package ai

import (
	"context"
	"fmt"
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// NewProvider builds a provider from an engine string, e.g. "pollinations"
// or "g4f:gpt-oss-120b".
func NewProvider(engine string) (Provider, error) {
	switch {
	case engine == "" || engine == "pollinations":
		return NewPollinationsProvider(), nil
	case engine == "g4f" || strings.HasPrefix(engine, "g4f:"):
		return NewG4FProvider(engine), nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", engine)
	}
}
