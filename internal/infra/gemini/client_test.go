package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-mascot/internal/infra/gemini"
)

func TestClient_Complete(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)

		response := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{
					{"text": "Howzat! "},
					{"text": "That's out."},
				}}},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", "You are a cricket mascot.", 100, server.URL)

	reply, err := client.Complete(context.Background(), "is it out?")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "Howzat! That's out." {
		t.Errorf("reply: got %q", reply)
	}

	cfg, _ := got["generationConfig"].(map[string]any)
	if cfg["maxOutputTokens"] != float64(100) {
		t.Errorf("maxOutputTokens: got %v", cfg["maxOutputTokens"])
	}
	if _, ok := got["systemInstruction"]; !ok {
		t.Error("expected systemInstruction in request")
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded","code":429}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", "prompt", 100, server.URL)

	_, err := client.Complete(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestClient_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", "prompt", 100, server.URL)

	if _, err := client.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
