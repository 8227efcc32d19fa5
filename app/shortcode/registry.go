package shortcode

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Handler renders one shortcode. content is the raw inner content; handlers
// that accept nested shortcodes pass it through rc.Do.
type Handler func(rc *RenderContext, attrs Attrs, content string) string

type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex

	// NewID generates element ids for shortcodes rendered without one.
	NewID func(prefix string) string
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		NewID:    randomID,
	}
}

// NewDefaultRegistry returns a registry with the theme shortcodes registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterTabs(r)
	return r
}

func (r *Registry) Register(tag string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = h
}

func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[tag]
	return ok
}

func (r *Registry) handler(tag string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[tag]
}

// Render expands every registered shortcode in content. Each call gets its
// own RenderContext, so concurrent renders do not share state.
func (r *Registry) Render(content string) string {
	rc := &RenderContext{registry: r}
	return rc.Do(content)
}

// RenderContext carries state shared by the shortcodes of one render tree.
type RenderContext struct {
	registry *Registry
	tabs     *tabsState
}

// Do expands shortcodes in content within this render tree.
func (rc *RenderContext) Do(content string) string {
	if !strings.Contains(content, "[") {
		return content
	}

	var b strings.Builder
	for _, node := range Parse(content, rc.registry.Has) {
		if node.Tag == "" {
			b.WriteString(node.Text)
			continue
		}
		b.WriteString(rc.registry.handler(node.Tag)(rc, node.Attrs, node.Content))
	}
	return b.String()
}

func (rc *RenderContext) newID(prefix string) string {
	return rc.registry.NewID(prefix)
}

func randomID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, rand.Uint32())
}
