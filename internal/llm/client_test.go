package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", req["model"])
		}
		if _, ok := req["response_format"]; !ok {
			t.Error("response_format missing for JSONOnly call")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"ok":true}`}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4o-mini")
	got, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{JSONOnly: true})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Chat = %q", got)
	}
}

func TestChat_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "m")
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{}); err == nil {
		t.Error("expected error on 503")
	}
}

func TestChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "m")
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{}); err == nil {
		t.Error("expected error on empty choices")
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"filler", `Sure! Here you go: {"a":1} hope that helps`, `{"a":1}`, false},
		{"none", `no json here`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.in)
			if tt.err {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	got, err := ExtractArray("```json\n[\"a\",\"b\"]\n```")
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if got != `["a","b"]` {
		t.Errorf("ExtractArray = %q", got)
	}

	if _, err := ExtractArray("plain text, not a list"); err == nil {
		t.Error("expected error for non-array response")
	}
}
