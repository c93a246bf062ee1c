package ai

import (
	"context"
	"strings"
	"time"
)

// ScriptedProvider replays a fixed response word by word. Used when no
// generation backend is configured, and in tests.
type ScriptedProvider struct {
	Response string
	Delay    time.Duration
}

func NewScriptedProvider(response string) *ScriptedProvider {
	if response == "" {
		response = "I am a scripted placeholder; configure AI_BASE_URL for real generation."
	}
	return &ScriptedProvider{Response: response}
}

func (p *ScriptedProvider) Stream(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)

		words := strings.Fields(p.Response)
		for i, w := range words {
			if i > 0 {
				w = " " + w
			}
			select {
			case deltas <- w:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			if p.Delay > 0 {
				time.Sleep(p.Delay)
			}
		}
	}()

	return deltas, errs
}
