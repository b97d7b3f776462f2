// Package widget implements the update-check engine for dashboard
// widgets. Suggested updates come back from the LLM as JSON and are
// persisted as non-active pending versions; the user activates or ignores
// them from the dashboard.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// Engine proposes and applies widget version changes.
type Engine struct {
	store  *store.Store
	prov   provider.LLMProvider
	events *bus.EventBus
	logger *slog.Logger
}

// NewEngine creates a widget engine. events may be nil in tests.
func NewEngine(st *store.Store, prov provider.LLMProvider, events *bus.EventBus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, prov: prov, events: events, logger: logger}
}

// Suggestion is the parsed update-check reply.
type Suggestion struct {
	HasUpdate bool            `json:"has_update"`
	Summary   string          `json:"summary"`
	Config    json.RawMessage `json:"config"`
}

const updateCheckSystemPrompt = `You review a dashboard widget's configuration and suggest one
improvement if a clearly better configuration exists. Reply with a single
JSON object:
{"has_update": true|false, "summary": "<one sentence>", "config": {...}}
When has_update is false, omit config. The config object must keep every
key the current configuration has.`

// CheckUpdates asks the LLM whether the widget's configuration should
// change. A suggestion is stored as a new non-active version with origin
// "suggested"; the active version and the widget row are untouched.
// Returns the new version number, or 0 when the model sees nothing to
// change.
func (e *Engine) CheckUpdates(ctx context.Context, widgetID string) (int, *Suggestion, error) {
	w, err := e.store.GetWidget(widgetID)
	if err != nil {
		return 0, nil, fmt.Errorf("load widget: %w", err)
	}

	prompt := fmt.Sprintf("Widget %q of kind %q, active version %d.\nCurrent configuration:\n%s",
		w.Name, w.Kind, w.ActiveVersion, w.Config)

	resp, err := e.prov.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: updateCheckSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0.3,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("update check completion: %w", err)
	}

	raw, err := provider.ExtractJSON(resp.Content)
	if err != nil {
		return 0, nil, fmt.Errorf("update check reply: %w", err)
	}
	var sug Suggestion
	if err := json.Unmarshal([]byte(raw), &sug); err != nil {
		return 0, nil, fmt.Errorf("parse update check reply: %w", err)
	}

	if !sug.HasUpdate || len(sug.Config) == 0 {
		return 0, &sug, nil
	}
	if !json.Valid(sug.Config) {
		return 0, nil, fmt.Errorf("suggested config is not valid JSON")
	}

	version, err := e.store.CreateWidgetVersion(widgetID, string(sug.Config), w.Source,
		store.VersionOriginSuggested, sug.Summary, false)
	if err != nil {
		return 0, nil, fmt.Errorf("store suggestion: %w", err)
	}

	e.logger.Info("widget update suggested", "widget_id", widgetID, "version", version)
	return version, &sug, nil
}

// Activate makes an existing version the widget's active one by appending
// a rollback-style snapshot of it. Works for both older versions and
// pending suggestions.
func (e *Engine) Activate(ctx context.Context, widgetID string, version int) (int, error) {
	newVersion, err := e.store.RollbackWidget(widgetID, version)
	if err != nil {
		return 0, err
	}
	if e.events != nil {
		w, werr := e.store.GetWidget(widgetID)
		hub := ""
		if werr == nil {
			hub = w.Hub
		}
		e.events.Publish(&bus.Event{
			Topic:   bus.TopicWidgetRollback,
			Hub:     hub,
			RefType: "widget",
			RefID:   widgetID,
			Payload: map[string]any{"from_version": version, "new_version": newVersion},
		})
	}
	return newVersion, nil
}
