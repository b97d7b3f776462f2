package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// Indexer keeps memory_chunks in sync with the rest of the store so the
// assistant can search over tasks, goals, habits, and widgets.
type Indexer struct {
	store    *store.Store
	embedder provider.Embedder
	model    string
	logger   *slog.Logger
}

// NewIndexer creates an indexer using the given embedding model.
func NewIndexer(st *store.Store, embedder provider.Embedder, model string, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: st, embedder: embedder, model: model, logger: logger}
}

// Index embeds content and upserts it as a chunk keyed by source and refID.
// When embedding fails the chunk is stored without a vector; the searcher
// skips it until a later reindex succeeds.
func (ix *Indexer) Index(ctx context.Context, source, refID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ix.store.DeleteChunksByRef(ctx, refID)
	}

	var blob []byte
	if ix.embedder != nil {
		resp, err := ix.embedder.Embed(ctx, &provider.EmbeddingRequest{Input: content, Model: ix.model})
		if err != nil {
			ix.logger.Warn("embed chunk failed", "source", source, "ref_id", refID, "error", err)
		} else {
			blob = EncodeVector(resp.Vector)
		}
	}

	chunk := &store.MemoryChunk{
		ID:        source + ":" + refID,
		Content:   content,
		Embedding: blob,
		Source:    source,
		RefID:     refID,
	}
	if err := ix.store.UpsertChunk(ctx, chunk); err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// Remove drops every chunk for the given ref.
func (ix *Indexer) Remove(ctx context.Context, refID string) error {
	return ix.store.DeleteChunksByRef(ctx, refID)
}

// BindBus subscribes the indexer to store mutation events so chunks follow
// the data without the services calling Index directly.
func (ix *Indexer) BindBus(b *bus.EventBus) {
	b.Subscribe(bus.TopicTaskCreated, ix.onTaskEvent)
	b.Subscribe(bus.TopicTaskCompleted, ix.onTaskEvent)
	b.Subscribe(bus.TopicGoalCompleted, ix.onGoalEvent)
	b.Subscribe(bus.TopicHabitCompleted, ix.onHabitEvent)
	b.Subscribe(bus.TopicWidgetVersion, ix.onWidgetEvent)
}

func (ix *Indexer) onTaskEvent(ev *bus.Event) {
	ctx := context.Background()
	task, err := ix.store.GetTask(ev.RefID)
	if err != nil {
		ix.logger.Warn("index task lookup failed", "task_id", ev.RefID, "error", err)
		return
	}
	content := "Task: " + task.Title
	if task.Description != "" {
		content += "\n" + task.Description
	}
	if task.Output != "" {
		content += "\nResult: " + task.Output
	}
	if err := ix.Index(ctx, "task", task.TaskID, content); err != nil {
		ix.logger.Warn("index task failed", "task_id", task.TaskID, "error", err)
	}
}

func (ix *Indexer) onGoalEvent(ev *bus.Event) {
	ctx := context.Background()
	goal, err := ix.store.GetGoal(ev.RefID)
	if err != nil {
		ix.logger.Warn("index goal lookup failed", "goal_id", ev.RefID, "error", err)
		return
	}
	content := fmt.Sprintf("Goal: %s (%d%%)", goal.Title, goal.Progress)
	if goal.Description != "" {
		content += "\n" + goal.Description
	}
	if err := ix.Index(ctx, "goal", goal.GoalID, content); err != nil {
		ix.logger.Warn("index goal failed", "goal_id", goal.GoalID, "error", err)
	}
}

func (ix *Indexer) onHabitEvent(ev *bus.Event) {
	ctx := context.Background()
	habit, err := ix.store.GetHabit(ev.RefID)
	if err != nil {
		ix.logger.Warn("index habit lookup failed", "habit_id", ev.RefID, "error", err)
		return
	}
	content := fmt.Sprintf("Habit: %s, current streak %d", habit.Name, habit.Streak)
	if err := ix.Index(ctx, "habit", habit.HabitID, content); err != nil {
		ix.logger.Warn("index habit failed", "habit_id", habit.HabitID, "error", err)
	}
}

func (ix *Indexer) onWidgetEvent(ev *bus.Event) {
	ctx := context.Background()
	widget, err := ix.store.GetWidget(ev.RefID)
	if err != nil {
		ix.logger.Warn("index widget lookup failed", "widget_id", ev.RefID, "error", err)
		return
	}
	content := fmt.Sprintf("Widget: %s (%s), version %d", widget.Name, widget.Kind, widget.ActiveVersion)
	if err := ix.Index(ctx, "widget", widget.WidgetID, content); err != nil {
		ix.logger.Warn("index widget failed", "widget_id", widget.WidgetID, "error", err)
	}
}
