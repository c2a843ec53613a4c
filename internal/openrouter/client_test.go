package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edpassistant/edpassistant/internal/core"
)

func TestParseContent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"empty", ``, ""},
		{"null", `null`, ""},
		{"typed parts", `[{"type":"text","text":"a"},{"type":"image","text":"skip"},{"type":"text","text":"b"}]`, "ab"},
		{"generic parts", `[{"text":"x"},{"other":1},{"text":"y"}]`, "xy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseContent(json.RawMessage(tc.raw)); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", "test-model", NewInflightLimiter(2), 5*time.Second)
	c.baseURL = srv.URL
	return c
}

func TestChatCompletionWithTools_Roundtrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: %q", got)
		}
		var req ChatRequestWithTools
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "test-model" || len(req.Tools) != 1 || req.ToolChoice != "auto" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok","tool_calls":[{"id":"c1","type":"function","function":{"name":"calculator","arguments":"{\"expression\":\"2+2\"}"}}]}}]}`))
	})

	content, toolCalls, err := client.ChatCompletionWithTools(context.Background(),
		[]Message{{Role: "user", Content: "what is 2+2"}},
		[]ToolDefinition{{Type: "function", Function: FunctionSpec{Name: "calculator"}}})
	if err != nil {
		t.Fatal(err)
	}
	if content != "ok" {
		t.Errorf("content: %q", content)
	}
	if len(toolCalls) != 1 || toolCalls[0].Function.Name != "calculator" || toolCalls[0].ID != "c1" {
		t.Errorf("tool calls: %+v", toolCalls)
	}
}

func TestChatCompletion_RetriesTransientErrors(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"recovered"}}]}`))
	})

	content, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if content != "recovered" {
		t.Errorf("got %q", content)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("expected 1 retry, server hit %d times", hits)
	}
}

func TestChatCompletion_NonRetryableStatus(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`forbidden`))
	})

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("403 must not be retried; server hit %d times", hits)
	}
}

func TestClient_MissingCredentials(t *testing.T) {
	c := NewClient("", "m", nil, time.Second)
	if _, err := c.ChatCompletion(context.Background(), nil); err == nil {
		t.Error("missing API key must error")
	}
	c = NewClient("k", "", nil, time.Second)
	if _, _, err := c.ChatCompletionWithTools(context.Background(), nil, nil); err == nil {
		t.Error("missing model must error")
	}
}

func TestInflightLimiter_SharedAcrossClients(t *testing.T) {
	var inFlight, maxSeen int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	t.Cleanup(srv.Close)

	// Two distinct clients, one limiter of 1: the cap must hold across both.
	limiter := NewInflightLimiter(1)
	a := NewClient("k", "m", limiter, 5*time.Second)
	a.baseURL = srv.URL
	b := NewClient("k", "m", limiter, 5*time.Second)
	b.baseURL = srv.URL

	var wg sync.WaitGroup
	for _, c := range []*Client{a, b} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if _, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}); err != nil {
				t.Errorf("ChatCompletion: %v", err)
			}
		}(c)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxSeen); got != 1 {
		t.Errorf("observed %d simultaneous inference requests, limiter allows 1", got)
	}
}

var _ core.LLMClient = (*Client)(nil)
