// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient returns a client pointed at the given server.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "test-model",
		Referer: "https://selene.local",
		Title:   "Selene",
		Timeout: 2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func textCompletion(content string) string {
	return `{"id":"gen-1","choices":[{"index":0,"message":{"role":"assistant","content":` +
		mustJSON(content) + `},"finish_reason":"stop"}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestClient_Chat_SendsRequiredHeaders(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Write([]byte(textCompletion("hello")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "hello" {
		t.Errorf("expected response %q, got %q", "hello", resp)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer credential, got %q", gotAuth)
	}
	if gotReferer != "https://selene.local" {
		t.Errorf("expected HTTP-Referer header, got %q", gotReferer)
	}
	if gotTitle != "Selene" {
		t.Errorf("expected X-Title header, got %q", gotTitle)
	}
}

func TestClient_Chat_MapsUnknownRoleToUser(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(textCompletion("ok")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "narrator", Content: "hi"}}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("expected unknown role mapped to user, got %+v", gotReq.Messages)
	}
}

func TestClient_Chat_GenerationParams(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(textCompletion("ok")))
	}))
	defer server.Close()

	temp := 0.1
	maxTokens := 256
	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{
		Temperature:   &temp,
		MaxTokens:     &maxTokens,
		ModelOverride: "other-model",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.Model != "other-model" {
		t.Errorf("expected model override, got %q", gotReq.Model)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", gotReq.Temperature)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens != 256 {
		t.Errorf("expected max_tokens 256, got %v", gotReq.MaxTokens)
	}
}

func TestClient_Chat_UpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error for 429 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestClient_Chat_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error for malformed JSON body")
	}
}

func TestClient_Chat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(textCompletion("late")))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_ChatWithTools_AutoModeAndProposals(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"id":"gen-2","choices":[{"index":0,"message":{"role":"assistant","content":"",` +
			`"tool_calls":[{"id":"call_1","type":"function","function":{"name":"google_search",` +
			`"arguments":"{\"query\":\"cats\"}"}}]},"finish_reason":"tool_calls"}]}`))
	}))
	defer server.Close()

	tools := []ToolDef{{
		Type: "function",
		Function: ToolFunction{
			Name:        "google_search",
			Description: "Web search",
			Parameters: ToolParameters{
				Type: "object",
				Properties: map[string]ToolParamDef{
					"query": {Type: "string"},
				},
				Required: []string{"query"},
			},
		},
	}}

	client := newTestClient(t, server.URL)
	result, err := client.ChatWithTools(context.Background(),
		[]Message{{Role: "user", Content: "search cats"}}, GenerationParams{}, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.ToolChoice != "auto" {
		t.Errorf("expected tool_choice auto, got %q", gotReq.ToolChoice)
	}
	if len(gotReq.Tools) != 1 {
		t.Fatalf("expected 1 tool in request, got %d", len(gotReq.Tools))
	}
	if result.StopReason != "tool_use" {
		t.Errorf("expected stop reason tool_use, got %q", result.StopReason)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "google_search" {
		t.Fatalf("expected google_search proposal, got %+v", result.ToolCalls)
	}

	var args map[string]string
	if err := json.Unmarshal(result.ToolCalls[0].Arguments, &args); err != nil {
		t.Fatalf("parsing proposal arguments: %v", err)
	}
	if args["query"] != "cats" {
		t.Errorf("expected query argument cats, got %q", args["query"])
	}
}

func TestClient_ChatWithTools_NoCallsIsEndStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textCompletion("no tool needed")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.ChatWithTools(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, GenerationParams{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StopReason != "end" {
		t.Errorf("expected stop reason end, got %q", result.StopReason)
	}
	if result.Content != "no tool needed" {
		t.Errorf("unexpected content %q", result.Content)
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}, nil); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
