package agent

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edpassistant/edpassistant/internal/core"
)

// BoundModel is a chat client paired with the tool schema it may call.
type BoundModel struct {
	Client core.LLMClient
	Tools  []core.ToolDefinition
}

// ClientFactory builds an LLM client for a model id.
type ClientFactory func(model string) core.LLMClient

// ModelRegistry memoizes bound model instances by model id so repeated
// invocations reuse the same client. Capacity is fixed; least-recently-used
// bindings are evicted. Model ids are trimmed before lookup so "m" and "m "
// share one entry.
type ModelRegistry struct {
	mu      sync.Mutex
	factory ClientFactory
	tools   []core.ToolDefinition
	cache   *lru.Cache[string, *BoundModel]
}

// NewModelRegistry creates a registry holding at most capacity bindings.
func NewModelRegistry(capacity int, tools []core.ToolDefinition, factory ClientFactory) (*ModelRegistry, error) {
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.New[string, *BoundModel](capacity)
	if err != nil {
		return nil, err
	}
	return &ModelRegistry{factory: factory, tools: tools, cache: cache}, nil
}

// Get returns the bound model for the given id, creating and caching it on
// first use.
func (r *ModelRegistry) Get(model string) *BoundModel {
	key := normalizeModelID(model)
	r.mu.Lock()
	defer r.mu.Unlock()
	if bound, ok := r.cache.Get(key); ok {
		return bound
	}
	bound := &BoundModel{Client: r.factory(key), Tools: r.tools}
	r.cache.Add(key, bound)
	return bound
}

// Len reports the number of cached bindings.
func (r *ModelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

func normalizeModelID(model string) string {
	return strings.TrimSpace(model)
}
