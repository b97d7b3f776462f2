// Package evolve implements the code-evolution engine. Each evolution is
// one LLM-proposed revision of a widget's source: the current source and a
// user directive go into the prompt, the reply's code comes back verbatim
// as a proposed generation. No compilation or semantic analysis happens
// here; the proposal is stored as-is and the user decides.
package evolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// Engine proposes and applies widget source evolutions.
type Engine struct {
	store  *store.Store
	prov   provider.LLMProvider
	events *bus.EventBus
	logger *slog.Logger
}

// NewEngine creates an evolution engine. events may be nil in tests.
func NewEngine(st *store.Store, prov provider.LLMProvider, events *bus.EventBus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, prov: prov, events: events, logger: logger}
}

const evolveSystemPrompt = `You revise the source code of a dashboard widget according to the
user's directive. Reply with a single JSON object:
{"summary": "<one sentence describing the change>", "source": "<the full revised source>"}
If you cannot fit the source in JSON, reply with the summary line followed
by the full revised source in a fenced code block. Always return the
complete source, never a fragment or a diff.`

// Propose asks the LLM to revise the widget's source per the directive and
// stores the result as a proposed evolution. parentID chains revisions of
// revisions; empty parentID starts from the widget's current source.
func (e *Engine) Propose(ctx context.Context, widgetID, parentID, directive string) (*store.Evolution, error) {
	directive = strings.TrimSpace(directive)
	if directive == "" {
		return nil, fmt.Errorf("empty directive")
	}

	w, err := e.store.GetWidget(widgetID)
	if err != nil {
		return nil, fmt.Errorf("load widget: %w", err)
	}

	source := w.Source
	if parentID != "" {
		parent, err := e.store.GetEvolution(parentID)
		if err != nil {
			return nil, fmt.Errorf("load parent evolution: %w", err)
		}
		if parent.WidgetID != widgetID {
			return nil, fmt.Errorf("parent evolution %s belongs to a different widget", parentID)
		}
		source = parent.Source
	}

	prompt := fmt.Sprintf("Widget %q (%s).\nDirective: %s\n\nCurrent source:\n```\n%s\n```",
		w.Name, w.Kind, directive, source)

	resp, err := e.prov.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: evolveSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   8192,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("evolution completion: %w", err)
	}

	summary, evolved := parseEvolveReply(resp.Content)
	if evolved == "" {
		return nil, fmt.Errorf("evolution reply contained no source")
	}

	ev, err := e.store.CreateEvolution(&store.Evolution{
		WidgetID:  widgetID,
		ParentID:  parentID,
		Directive: directive,
		Source:    evolved,
		Summary:   summary,
		Model:     e.prov.DefaultModel(),
	})
	if err != nil {
		return nil, fmt.Errorf("store evolution: %w", err)
	}

	if e.events != nil {
		e.events.Publish(&bus.Event{
			Topic:   bus.TopicEvolutionCreated,
			Hub:     w.Hub,
			RefType: "evolution",
			RefID:   ev.EvolutionID,
			Payload: map[string]any{"widget_id": widgetID, "generation": ev.Generation},
		})
	}

	e.logger.Info("evolution proposed", "evolution_id", ev.EvolutionID, "widget_id", widgetID, "generation", ev.Generation)
	return ev, nil
}

// Apply activates a proposed evolution: the widget gets a new active
// version carrying the evolved source, and the evolution row is marked
// applied. Only a proposed evolution can be applied.
func (e *Engine) Apply(ctx context.Context, evolutionID string) (int, error) {
	ev, err := e.store.GetEvolution(evolutionID)
	if err != nil {
		return 0, fmt.Errorf("load evolution: %w", err)
	}
	if ev.Status != store.EvolutionProposed {
		return 0, fmt.Errorf("evolution %s is %s, only proposed evolutions can be applied", evolutionID, ev.Status)
	}

	w, err := e.store.GetWidget(ev.WidgetID)
	if err != nil {
		return 0, fmt.Errorf("load widget: %w", err)
	}

	notes := ev.Summary
	if notes == "" {
		notes = ev.Directive
	}
	version, err := e.store.CreateWidgetVersion(ev.WidgetID, w.Config, ev.Source,
		store.VersionOriginEvolution, notes, true)
	if err != nil {
		return 0, fmt.Errorf("activate evolved source: %w", err)
	}

	if err := e.store.DecideEvolution(evolutionID, store.EvolutionApplied); err != nil {
		return 0, fmt.Errorf("mark applied: %w", err)
	}

	if e.events != nil {
		e.events.Publish(&bus.Event{
			Topic:   bus.TopicEvolutionApplied,
			Hub:     w.Hub,
			RefType: "evolution",
			RefID:   evolutionID,
			Payload: map[string]any{"widget_id": ev.WidgetID, "version": version},
		})
	}
	return version, nil
}

// Reject marks a proposed evolution rejected.
func (e *Engine) Reject(ctx context.Context, evolutionID string) error {
	return e.store.DecideEvolution(evolutionID, store.EvolutionRejected)
}

// parseEvolveReply accepts either the JSON shape from the system prompt or
// a summary line plus fenced code block.
func parseEvolveReply(text string) (summary, source string) {
	if raw, err := provider.ExtractJSON(text); err == nil {
		var out struct {
			Summary string `json:"summary"`
			Source  string `json:"source"`
		}
		if json.Unmarshal([]byte(raw), &out) == nil && out.Source != "" {
			return out.Summary, out.Source
		}
	}
	source = provider.ExtractCodeBlock(text)
	if source == strings.TrimSpace(text) {
		// No fence and no JSON: treat the reply as not parseable rather
		// than storing prose as source.
		return "", ""
	}
	if idx := strings.Index(text, "```"); idx > 0 {
		summary = strings.TrimSpace(text[:idx])
		if nl := strings.IndexByte(summary, '\n'); nl > 0 {
			summary = summary[:nl]
		}
	}
	return summary, source
}
