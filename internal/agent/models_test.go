package agent

import (
	"testing"

	"github.com/edpassistant/edpassistant/internal/core"
)

func TestModelRegistry_Memoizes(t *testing.T) {
	built := 0
	reg, err := NewModelRegistry(4, nil, func(model string) core.LLMClient {
		built++
		return &scriptedClient{}
	})
	if err != nil {
		t.Fatal(err)
	}

	a := reg.Get("model-a")
	b := reg.Get("model-a")
	if a != b {
		t.Error("same model id must return the same bound instance")
	}
	if built != 1 {
		t.Errorf("factory invoked %d times, want 1", built)
	}

	// Key normalization: surrounding whitespace shares the entry.
	_ = reg.Get("  model-a ")
	if built != 1 {
		t.Errorf("normalized ids must share one binding; factory invoked %d times", built)
	}

	_ = reg.Get("model-b")
	if built != 2 {
		t.Errorf("distinct model ids need distinct bindings; factory invoked %d times", built)
	}
}

func TestModelRegistry_BoundedCapacity(t *testing.T) {
	reg, err := NewModelRegistry(2, nil, func(model string) core.LLMClient {
		return &scriptedClient{}
	})
	if err != nil {
		t.Fatal(err)
	}
	reg.Get("m1")
	reg.Get("m2")
	reg.Get("m3")
	if reg.Len() > 2 {
		t.Errorf("cache exceeded fixed capacity: %d entries", reg.Len())
	}
}
