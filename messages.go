package unify

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// MessageBundle is a Messages implementation backed by a key to template
// map. Templates reference parameters as {0}, {1} and so on.
type MessageBundle struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMessageBundle creates a bundle from templates.
func NewMessageBundle(templates map[string]string) *MessageBundle {
	b := &MessageBundle{templates: make(map[string]string, len(templates))}
	for k, v := range templates {
		b.templates[k] = v
	}
	return b
}

// LoadMessageBundle reads a flat YAML mapping of keys to templates.
func LoadMessageBundle(r io.Reader) (*MessageBundle, error) {
	var templates map[string]string
	if err := yaml.NewDecoder(r).Decode(&templates); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode message bundle: %w", err)
	}
	return NewMessageBundle(templates), nil
}

// Merge adds the templates of other, replacing existing keys.
func (b *MessageBundle) Merge(other *MessageBundle) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range other.templates {
		b.templates[k] = v
	}
}

// Message formats the template stored under key.
func (b *MessageBundle) Message(key string, params ...any) (string, error) {
	b.mu.RLock()
	tmpl, ok := b.templates[key]
	b.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no message for key %q", key)
	}
	return formatMessage(tmpl, params)
}

func formatMessage(tmpl string, params []any) (string, error) {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String(), nil
		}

		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String(), nil
		}
		end += open

		i, err := strconv.Atoi(tmpl[open+1 : end])
		if err != nil {
			b.WriteString(tmpl[:end+1])
			tmpl = tmpl[end+1:]
			continue
		}
		if i < 0 || i >= len(params) {
			return "", fmt.Errorf("message parameter {%d} out of range (%d given)", i, len(params))
		}

		b.WriteString(tmpl[:open])
		fmt.Fprint(&b, params[i])
		tmpl = tmpl[end+1:]
	}
}
