package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/atelierline/concierge/agent/contract"
)

func TestUpstashStoreRedisKey(t *testing.T) {
	t.Parallel()

	s := &UpstashStore{keyPrefix: defaultKeyPrefix}
	got, err := s.redisKey("7")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "concierge:history:7" {
		t.Fatalf("redisKey() = %q, want %q", got, "concierge:history:7")
	}
}

func TestUpstashStoreRedisKeyEmptyConversation(t *testing.T) {
	t.Parallel()

	s := &UpstashStore{keyPrefix: defaultKeyPrefix}
	_, err := s.redisKey("   ")
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidConversation", err)
	}
}

func TestUpstashStoreAppendPushesAndTrims(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		commands = append(commands, cmd)
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	s, err := NewUpstashStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	turn := contractx.Turn{Role: contractx.RoleUser, Content: "hello"}
	if err := s.Append(context.Background(), "7", turn); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(commands) != 2 {
		t.Fatalf("commands = %d, want RPUSH then LTRIM", len(commands))
	}
	if commands[0][0] != "RPUSH" || commands[0][1] != "concierge:history:7" {
		t.Fatalf("first command = %#v, want RPUSH on history key", commands[0])
	}
	if commands[1][0] != "LTRIM" {
		t.Fatalf("second command = %#v, want LTRIM", commands[1])
	}
	// JSON numbers decode as float64.
	if got := commands[1][2]; got != float64(-MaxTurns) {
		t.Fatalf("LTRIM start = %v, want %d", got, -MaxTurns)
	}
}

func TestUpstashStoreAppendSetsTTL(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		commands = append(commands, cmd)
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	s, err := NewUpstashStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	if err := s.Append(context.Background(), "7", contractx.Turn{Role: contractx.RoleUser, Content: "x"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(commands) != 3 {
		t.Fatalf("commands = %d, want RPUSH, LTRIM, EXPIRE", len(commands))
	}
	if commands[2][0] != "EXPIRE" {
		t.Fatalf("third command = %#v, want EXPIRE", commands[2])
	}
}

func TestUpstashStoreRecentDecodesTurns(t *testing.T) {
	t.Parallel()

	seed := []contractx.Turn{
		{Role: contractx.RoleUser, Content: "hi"},
		{Role: contractx.RoleAssistant, Content: "hello!"},
	}
	encoded := make([]string, 0, len(seed))
	for _, turn := range seed {
		payload, err := json.Marshal(turn)
		if err != nil {
			t.Fatalf("marshal seed: %v", err)
		}
		encoded = append(encoded, string(payload))
	}
	result, err := json.Marshal(encoded)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, result)
	}))
	t.Cleanup(server.Close)

	s, err := NewUpstashStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	turns, err := s.Recent(context.Background(), "7")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len = %d, want 2", len(turns))
	}
	if turns[1].Role != contractx.RoleAssistant || turns[1].Content != "hello!" {
		t.Fatalf("turns[1] = %+v", turns[1])
	}
	if gotCommand[0] != "LRANGE" {
		t.Fatalf("command = %#v, want LRANGE", gotCommand)
	}
}

func TestUpstashStoreRecentNullResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	s, err := NewUpstashStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	turns, err := s.Recent(context.Background(), "7")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if turns != nil {
		t.Fatalf("turns = %v, want nil", turns)
	}
}

func TestUpstashStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE"}`)
	}))
	t.Cleanup(server.Close)

	s, err := NewUpstashStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	if err := s.Append(context.Background(), "7", contractx.Turn{Role: contractx.RoleUser, Content: "x"}); err == nil {
		t.Fatal("Append() error = nil, want redis error")
	}
}

func TestNewUpstashStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashStore(UpstashConfig{URL: "", Token: "t"}); err == nil {
		t.Fatal("NewUpstashStore() with empty URL, want error")
	}
	if _, err := NewUpstashStore(UpstashConfig{URL: "https://example.upstash.io", Token: ""}); err == nil {
		t.Fatal("NewUpstashStore() with empty token, want error")
	}
}
