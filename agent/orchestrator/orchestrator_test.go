package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/agent/history"
	"github.com/atelierline/concierge/store"
	"github.com/atelierline/concierge/store/storetest"
)

type stubClassifier struct {
	name contractx.HandlerName
}

func (s stubClassifier) Classify(ctx context.Context, message string, conv contractx.Context) contractx.HandlerName {
	return s.name
}

type stubHandler struct {
	name   contractx.HandlerName
	result contractx.AgentResult
	err    error
	panics bool
}

func (s *stubHandler) Name() contractx.HandlerName { return s.name }

func (s *stubHandler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

type stubRegistry map[contractx.HandlerName]contractx.Handler

func (r stubRegistry) Handler(name contractx.HandlerName) (contractx.Handler, bool) {
	h, ok := r[name]
	return h, ok
}

func newOrchestrator(t *testing.T, h *stubHandler, hist history.Store) *Orchestrator {
	t.Helper()
	o, err := New(
		stubClassifier{name: h.name},
		stubRegistry{h.name: h},
		hist,
		&storetest.Store{},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestProcessMessageSuccess(t *testing.T) {
	t.Parallel()

	h := &stubHandler{
		name: contractx.HandlerSearch,
		result: contractx.AgentResult{
			Response:     "found it",
			ActionsTaken: []contractx.Action{contractx.NewAction("searched")},
			Confidence:   0.9,
		},
	}
	o := newOrchestrator(t, h, history.NewMemoryStore())

	reply := o.ProcessMessage(context.Background(), "find a shirt", 7, contractx.Context{CustomerID: 7})
	if reply.Handler != contractx.HandlerSearch {
		t.Fatalf("Handler = %q, want search", reply.Handler)
	}
	if reply.Response != "found it" {
		t.Fatalf("Response = %q", reply.Response)
	}
	if reply.Error != "" {
		t.Fatalf("Error = %q, want empty", reply.Error)
	}
}

func TestProcessMessageAppliesDefaults(t *testing.T) {
	t.Parallel()

	h := &stubHandler{
		name:   contractx.HandlerSearch,
		result: contractx.AgentResult{Response: "bare"},
	}
	o := newOrchestrator(t, h, history.NewMemoryStore())

	reply := o.ProcessMessage(context.Background(), "hi", 0, contractx.Context{})
	if reply.Confidence != 0.8 {
		t.Fatalf("Confidence = %v, want default 0.8", reply.Confidence)
	}
	if reply.ActionsTaken == nil {
		t.Fatal("ActionsTaken = nil, want empty slice")
	}
}

func TestProcessMessageContainsHandlerError(t *testing.T) {
	t.Parallel()

	h := &stubHandler{name: contractx.HandlerCheckout, err: errors.New("db down")}
	o := newOrchestrator(t, h, history.NewMemoryStore())

	reply := o.ProcessMessage(context.Background(), "checkout", 7, contractx.Context{})
	if reply.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", reply.Confidence)
	}
	if reply.Error == "" {
		t.Fatal("Error empty, want failure detail")
	}
	if !strings.Contains(reply.Response, "I apologize") {
		t.Fatalf("Response = %q, want apology", reply.Response)
	}
	if !strings.Contains(reply.Response, "db down") {
		t.Fatalf("Response = %q, want embedded error message", reply.Response)
	}
}

func TestProcessMessageContainsHandlerPanic(t *testing.T) {
	t.Parallel()

	h := &stubHandler{name: contractx.HandlerCheckout, panics: true}
	o := newOrchestrator(t, h, history.NewMemoryStore())

	reply := o.ProcessMessage(context.Background(), "checkout", 7, contractx.Context{})
	if reply.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", reply.Confidence)
	}
	if !strings.Contains(reply.Error, "boom") {
		t.Fatalf("Error = %q, want panic detail", reply.Error)
	}
}

func TestProcessMessageUnknownHandlerIsDegraded(t *testing.T) {
	t.Parallel()

	o, err := New(
		stubClassifier{name: contractx.HandlerStylist},
		stubRegistry{}, // nothing registered
		history.NewMemoryStore(),
		&storetest.Store{},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply := o.ProcessMessage(context.Background(), "style me", 0, contractx.Context{})
	if reply.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", reply.Confidence)
	}
	if !strings.Contains(reply.Error, "unknown handler") {
		t.Fatalf("Error = %q, want unknown handler detail", reply.Error)
	}
}

func TestProcessMessageHistoryBound(t *testing.T) {
	t.Parallel()

	h := &stubHandler{
		name:   contractx.HandlerSearch,
		result: contractx.AgentResult{Response: "reply"},
	}
	hist := history.NewMemoryStore()
	o := newOrchestrator(t, h, hist)

	for i := 0; i < 8; i++ {
		o.ProcessMessage(context.Background(), fmt.Sprintf("message %d", i), 7, contractx.Context{})
	}

	turns, err := hist.Recent(context.Background(), "7")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != history.MaxTurns {
		t.Fatalf("history length = %d, want %d", len(turns), history.MaxTurns)
	}
	// 8 exchanges = 16 turns; the window keeps the last 10, starting with
	// the user turn of message 3.
	if turns[0].Role != contractx.RoleUser || turns[0].Content != "message 3" {
		t.Fatalf("turns[0] = %+v, want user turn of message 3", turns[0])
	}
	last := turns[len(turns)-1]
	if last.Role != contractx.RoleAssistant || last.Content != "reply" {
		t.Fatalf("last turn = %+v, want assistant reply", last)
	}
}

func TestProcessMessageDegradedPathStillRecordsHistory(t *testing.T) {
	t.Parallel()

	h := &stubHandler{name: contractx.HandlerCheckout, err: errors.New("db down")}
	hist := history.NewMemoryStore()
	o := newOrchestrator(t, h, hist)

	o.ProcessMessage(context.Background(), "checkout", 0, contractx.Context{})

	turns, err := hist.Recent(context.Background(), "anonymous")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("history length = %d, want 2", len(turns))
	}
	if !strings.Contains(turns[1].Content, "I apologize") {
		t.Fatalf("assistant turn = %q, want degraded response text", turns[1].Content)
	}
}
