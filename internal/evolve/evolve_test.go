package evolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

type scriptedProvider struct {
	reply string
}

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: p.reply, FinishReason: "stop"}, nil
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func newFixture(t *testing.T, reply string) (*Engine, *store.Store, *store.Widget) {
	t.Helper()
	st, err := store.Open(store.Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "atlas.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	w, err := st.CreateWidget(&store.Widget{
		Hub:    store.HubPersonal,
		Name:   "Notes",
		Kind:   "notes",
		Config: `{"lines": 10}`,
		Source: "function Notes() { return old }",
	})
	if err != nil {
		t.Fatalf("create widget: %v", err)
	}
	return NewEngine(st, &scriptedProvider{reply: reply}, nil, nil), st, w
}

func TestProposeStoresEvolution(t *testing.T) {
	e, _, w := newFixture(t, `{"summary": "add autosave", "source": "function Notes() { return new }"}`)

	ev, err := e.Propose(context.Background(), w.WidgetID, "", "add autosave")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if ev.Generation != 1 {
		t.Errorf("generation = %d, want 1", ev.Generation)
	}
	if ev.Status != store.EvolutionProposed {
		t.Errorf("status = %s", ev.Status)
	}
	if ev.Source != "function Notes() { return new }" {
		t.Errorf("source = %q", ev.Source)
	}
	if ev.Model != "scripted" {
		t.Errorf("model = %q", ev.Model)
	}
}

func TestProposeFencedReply(t *testing.T) {
	reply := "Added autosave on blur.\n```js\nfunction Notes() { return fenced }\n```"
	e, _, w := newFixture(t, reply)

	ev, err := e.Propose(context.Background(), w.WidgetID, "", "add autosave")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if ev.Source != "function Notes() { return fenced }" {
		t.Errorf("source = %q", ev.Source)
	}
	if ev.Summary != "Added autosave on blur." {
		t.Errorf("summary = %q", ev.Summary)
	}
}

func TestProposeChainsGenerations(t *testing.T) {
	e, _, w := newFixture(t, `{"summary": "s", "source": "gen1"}`)
	ctx := context.Background()

	first, err := e.Propose(ctx, w.WidgetID, "", "step one")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	second, err := e.Propose(ctx, w.WidgetID, first.EvolutionID, "step two")
	if err != nil {
		t.Fatalf("propose child: %v", err)
	}
	if second.Generation != 2 {
		t.Errorf("child generation = %d, want 2", second.Generation)
	}
	if second.ParentID != first.EvolutionID {
		t.Errorf("parent id = %q", second.ParentID)
	}
}

func TestProposeProseOnlyReply(t *testing.T) {
	e, _, w := newFixture(t, "I would suggest making it better somehow.")
	if _, err := e.Propose(context.Background(), w.WidgetID, "", "improve"); err == nil {
		t.Fatal("expected error for reply without source")
	}
}

func TestApplySwapsSourceAndSettlesStatus(t *testing.T) {
	e, st, w := newFixture(t, `{"summary": "rewrite", "source": "function Notes() { return applied }"}`)
	ctx := context.Background()

	ev, err := e.Propose(ctx, w.WidgetID, "", "rewrite it")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	version, err := e.Apply(ctx, ev.EvolutionID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	got, err := st.GetWidget(w.WidgetID)
	if err != nil {
		t.Fatalf("get widget: %v", err)
	}
	if got.Source != "function Notes() { return applied }" {
		t.Errorf("widget source = %q", got.Source)
	}
	if got.ActiveVersion != 2 {
		t.Errorf("active version = %d", got.ActiveVersion)
	}

	applied, _ := st.GetEvolution(ev.EvolutionID)
	if applied.Status != store.EvolutionApplied {
		t.Errorf("status = %s", applied.Status)
	}

	// Applying twice must fail.
	if _, err := e.Apply(ctx, ev.EvolutionID); err == nil {
		t.Fatal("expected error applying an applied evolution")
	}
}

func TestRejectEvolution(t *testing.T) {
	e, st, w := newFixture(t, `{"summary": "s", "source": "src"}`)
	ctx := context.Background()

	ev, err := e.Propose(ctx, w.WidgetID, "", "try")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := e.Reject(ctx, ev.EvolutionID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := st.GetEvolution(ev.EvolutionID)
	if got.Status != store.EvolutionRejected {
		t.Errorf("status = %s", got.Status)
	}
	if _, err := e.Apply(ctx, ev.EvolutionID); err == nil {
		t.Fatal("expected error applying a rejected evolution")
	}
}
