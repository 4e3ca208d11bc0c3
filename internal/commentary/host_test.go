package commentary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFakeLLM(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "llama3", "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateReturnsCompletion(t *testing.T) {
	srv := newFakeLLM(t, "Welcome to the show, hackers!")
	host := New(srv.URL+"/v1", "ollama", "llama3")

	if !host.Available() {
		t.Fatal("expected endpoint to be available")
	}

	got, err := host.Generate(context.Background(), "introduce the game", "you are a quiz host")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Welcome to the show, hackers!" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestGenerateTruncatesLongReplies(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := newFakeLLM(t, long)
	host := New(srv.URL+"/v1", "ollama", "llama3")

	got, err := host.Generate(context.Background(), "ramble", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len([]rune(got)) != maxReplyRunes {
		t.Fatalf("expected %d runes, got %d", maxReplyRunes, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
}

func TestUnavailableEndpointCachesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	srv.Close() // refuse connections entirely

	host := New(srv.URL+"/v1", "ollama", "llama3")
	if host.Available() {
		t.Fatal("expected endpoint to be unavailable")
	}
	if _, err := host.Generate(context.Background(), "hi", ""); err == nil {
		t.Fatal("expected generate to fail when unavailable")
	}
	// Cached result, no second probe.
	if host.Available() {
		t.Fatal("expected cached unavailable result")
	}
}
