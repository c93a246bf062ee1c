package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Provider streams generated text. The deltas channel is closed when
// generation ends; a terminal error, if any, is then available on errs.
type Provider interface {
	Stream(ctx context.Context, prompt string) (deltas <-chan string, errs <-chan error)
}

// Registry maps mention names to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(name string, p Provider) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)`)

// ExtractMentions scans content for @name mentions against the
// registered whitelist. It returns the distinct mentioned names in
// order of first appearance and the content with those mentions
// stripped, for use as the generation query.
func ExtractMentions(content string, names []string) ([]string, string) {
	whitelist := make(map[string]bool, len(names))
	for _, n := range names {
		whitelist[strings.ToLower(n)] = true
	}

	seen := make(map[string]bool)
	var mentioned []string

	stripped := mentionPattern.ReplaceAllStringFunc(content, func(m string) string {
		name := strings.ToLower(strings.TrimPrefix(m, "@"))
		if !whitelist[name] {
			return m
		}
		if !seen[name] {
			seen[name] = true
			mentioned = append(mentioned, name)
		}
		return ""
	})

	return mentioned, strings.TrimSpace(strings.Join(strings.Fields(stripped), " "))
}
